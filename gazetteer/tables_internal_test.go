package gazetteer

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type TablesConsistencyTestSuite struct {
	suite.Suite
}

func (suite *TablesConsistencyTestSuite) TestAliases() {
	for k, v := range cityAliases {
		_, ok := cityStates[v]
		suite.True(ok, "%s -> %s", k, v)
	}
}

func (suite *TablesConsistencyTestSuite) TestCircleCities() {
	for k, v := range circleCities {
		_, ok := cityStates[v]
		suite.True(ok, "%s -> %s", k, v)
	}
}

func (suite *TablesConsistencyTestSuite) TestStatesAreCanonical() {
	all := []string{}

	for _, v := range circleStates {
		all = append(all, v)
	}

	for _, v := range fontStates {
		all = append(all, v)
	}

	for _, v := range languages {
		all = append(all, v.States...)
	}

	for _, v := range colos {
		all = append(all, v.State)
	}

	for _, v := range stateAliases {
		all = append(all, v)
	}

	for _, v := range all {
		suite.Equal(v, NormalizeState(v))
		suite.True(IsKnownState(v), v)
	}
}

func (suite *TablesConsistencyTestSuite) TestColoCities() {
	for code, colo := range colos {
		suite.Equal(colo.State, cityStates[colo.City], code)

		for _, v := range colo.Candidates {
			_, ok := cityStates[v]
			suite.True(ok, "%s: %s", code, v)
		}
	}
}

func TestTablesConsistency(t *testing.T) {
	suite.Run(t, &TablesConsistencyTestSuite{})
}
