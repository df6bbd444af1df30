package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/9seconds/whereabouts/api"
	"github.com/9seconds/whereabouts/providers"
	"github.com/9seconds/whereabouts/wherelib"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

const shutdownTimeout = 10 * time.Second

var version = "0.1.0"

var (
	app = kingpin.New(
		"whereabouts",
		"City-level location inference for Indian IP addresses")

	debug = app.Flag("debug", "Run in debug mode.").
		Short('d').
		Envar("WHEREABOUTS_DEBUG").
		Bool()
	configFile = app.Flag("config", "Path to the config.").
			Short('c').
			Envar("WHEREABOUTS_CONFIG").
			File()

	cmdServe = app.Command("serve", "Run HTTP server.").Default()

	cmdInfer          = app.Command("infer", "Infer a location of IP address.")
	cmdInferIP        = cmdInfer.Arg("ip", "IP address to infer.").Required().IP()
	cmdInferLanguages = cmdInfer.Flag("language", "Browser language.").Short('l').Strings()
	cmdInferFonts     = cmdInfer.Flag("font", "Detected font.").Short('f').Strings()
	cmdInferCity      = cmdInfer.Flag("edge-city", "City reported by CDN edge.").String()
	cmdInferCountry   = cmdInfer.Flag("edge-country", "Country reported by CDN edge.").String()
	cmdInferASN       = cmdInfer.Flag("asn", "ASN of IP address.").String()
	cmdInferHostname  = cmdInfer.Flag("hostname", "Reverse DNS hostname.").String()

	cmdVPN         = app.Command("vpn", "Check if IP address belongs to VPN.")
	cmdVPNIP       = cmdVPN.Arg("ip", "IP address to check.").Required().IP()
	cmdVPNASN      = cmdVPN.Flag("asn", "ASN of IP address.").String()
	cmdVPNHostname = cmdVPN.Flag("hostname", "Reverse DNS hostname.").String()

	cmdProviders = app.Command("providers", "List known online providers.")
)

func init() {
	app.Version(version)
	log.SetFormatter(&log.TextFormatter{})
	log.SetLevel(log.WarnLevel)
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	if command == cmdProviders.FullCommand() {
		printVendors()

		return
	}

	conf, err := readConfig()
	if err != nil {
		log.Fatal(err.Error())
	}

	ctx, cancel := makeRootContext()
	defer cancel()

	if command == cmdVPN.FullCommand() {
		scorer := wherelib.NewVPNScorer(conf.TrustedEnvironment, conf.ExtraVPNASNs...)
		printJSON(scorer.Detect(*cmdVPNIP, *cmdVPNASN, *cmdVPNHostname))

		return
	}

	comps, err := makeComponents(ctx, conf, newLogger())
	if err != nil {
		log.Fatal(err.Error())
	}
	defer comps.Close()

	switch command {
	case cmdInfer.FullCommand():
		printJSON(comps.engine.Infer(ctx, *cmdInferIP, wherelib.Signals{
			Edge: wherelib.EdgeGeo{
				City:    *cmdInferCity,
				Country: *cmdInferCountry,
			},
			Languages: *cmdInferLanguages,
			Fonts:     *cmdInferFonts,
			ASN:       *cmdInferASN,
			Hostname:  *cmdInferHostname,
		}))
	case cmdServe.FullCommand():
		if err := serve(ctx, conf, comps); err != nil {
			log.Error(err.Error())
		}
	}
}

func readConfig() (*config, error) {
	if *configFile == nil {
		conf := &config{}

		return conf, validateConfig(conf)
	}

	defer (*configFile).Close()

	return parseConfig(*configFile)
}

func serve(ctx context.Context, conf *config, comps *components) error {
	opts := api.ServerOptions{
		Engine:         comps.engine,
		VPNDetector:    comps.vpn,
		RequestTimeout: conf.GetRequestTimeout(),
	}

	if comps.learning != nil {
		opts.Learner = comps.learning
	}

	if comps.ensemble != nil {
		opts.Stats = comps.ensemble
	}

	if conf.Auth.Enabled() {
		opts.Middlewares = append(opts.Middlewares, basicAuth(conf.Auth))
	}

	router, err := api.MakeServer(opts)
	if err != nil {
		return errors.Annotate(err, "cannot make http server")
	}

	listener, err := net.Listen("tcp", conf.GetListen())
	if err != nil {
		return errors.Annotate(err, "cannot start listener")
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: time.Minute,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		srv.Shutdown(shutdownCtx) // nolint: errcheck
	}()

	log.WithField("listen", listener.Addr().String()).Info("Start http server")

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Annotate(err, "http server has been stopped")
	}

	return nil
}

func printVendors() {
	type vendorInfo struct {
		Name        string  `json:"name"`
		Weight      float64 `json:"weight"`
		RequiresKey bool    `json:"requires_key"`
	}

	vendors := providers.Vendors()
	infos := make([]vendorInfo, 0, len(vendors))

	for _, v := range vendors {
		infos = append(infos, vendorInfo{
			Name:        v.Name,
			Weight:      v.Weight,
			RequiresKey: v.RequiresKey,
		})
	}

	printJSON(infos)
}

func printJSON(value interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(value); err != nil {
		log.Fatal(err.Error())
	}
}
