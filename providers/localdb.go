package providers

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/9seconds/whereabouts/wherelib"
	"github.com/juju/errors"
	"github.com/spf13/afero"
)

type localReader interface {
	City(ip net.IP) (wherelib.GeoRecord, error)
	Close() error
}

type localOpener func(fs afero.Fs, path string) (localReader, error)

// LocalDB is a wherelib.LocalGeoDB backed by a file. Until the file is
// loaded, every lookup returns wherelib.ErrDatabaseIsNotReadyYet.
type LocalDB struct {
	name    string
	fs      afero.Fs
	path    string
	open    localOpener
	reader  localReader
	modTime time.Time
	lock    sync.RWMutex
}

func (l *LocalDB) Name() string {
	return l.name
}

func (l *LocalDB) City(ip net.IP) (wherelib.GeoRecord, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	if l.reader == nil {
		return wherelib.GeoRecord{}, wherelib.ErrDatabaseIsNotReadyYet
	}

	return l.reader.City(ip)
}

// Reload opens a database file again if it was changed since the last
// load. It returns true if a new reader has replaced the old one. If a
// new file is broken, the old reader is kept.
func (l *LocalDB) Reload() (bool, error) {
	stat, err := l.fs.Stat(l.path)
	if err != nil {
		return false, errors.Annotatef(err, "cannot stat %s", l.path)
	}

	l.lock.RLock()
	unchanged := l.reader != nil && stat.ModTime().Equal(l.modTime)
	l.lock.RUnlock()

	if unchanged {
		return false, nil
	}

	reader, err := l.open(l.fs, l.path)
	if err != nil {
		return false, errors.Annotatef(err, "cannot open %s database", l.name)
	}

	l.lock.Lock()
	oldReader := l.reader
	l.reader = reader
	l.modTime = stat.ModTime()
	l.lock.Unlock()

	if oldReader != nil {
		oldReader.Close() // nolint: errcheck
	}

	return true, nil
}

// Watch reloads a database periodically until context is closed.
func (l *LocalDB) Watch(ctx context.Context, every time.Duration, logger wherelib.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reloaded, err := l.Reload()

			switch {
			case err != nil:
				logger.ProviderError(nil, l.name, err)
			case reloaded:
				logger.Debug(l.name, "database has been reloaded")
			}
		}
	}
}

func (l *LocalDB) Close() error {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.reader == nil {
		return nil
	}

	err := l.reader.Close()
	l.reader = nil
	l.modTime = time.Time{}

	return err
}

func newLocalDB(name string, fs afero.Fs, path string, open localOpener) (*LocalDB, error) {
	if path == "" {
		return nil, errors.NotValidf("empty path to %s database", name)
	}

	if fs == nil {
		fs = afero.NewOsFs()
	}

	db := &LocalDB{
		name: name,
		fs:   fs,
		path: path,
		open: open,
	}

	if _, err := db.Reload(); err != nil {
		return db, err
	}

	return db, nil
}
