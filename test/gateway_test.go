//go:build integration

package test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/suite"

	"github.com/relabs-tech/tablegate/core/gateway"
)

type GatewayTestSuite struct {
	IntegrationTestSuite
}

func TestGatewayTestSuite(t *testing.T) {
	suite.Run(t, &GatewayTestSuite{})
}

func (s *GatewayTestSuite) TestResolutionAcrossTargets() {
	var result map[string]interface{}
	status, err := s.admin.Table("members").Insert(map[string]string{"name": "Carla"}, &result)
	s.Require().NoError(err)
	s.Equal(http.StatusCreated, status)
	s.Equal("G3", result["database"], "members exists in both targets, G3 wins")
	s.Equal(float64(4), result["inserted_id"])

	status, err = s.admin.Table("courses").Insert(map[string]interface{}{"title": "Databases", "credits": 4}, &result)
	s.Require().NoError(err)
	s.Equal(http.StatusCreated, status)
	s.Equal("CIMS", result["database"])

	status, _ = s.admin.Table("courses").Insert(map[string]interface{}{"title": "Databases"}, &result)
	s.Equal(http.StatusInternalServerError, status)
	s.Equal("Database insert failed", result["error"])

	status, _ = s.viewer.Table("students").Search(map[string]string{"name": "x"}, &result)
	s.Equal(http.StatusNotFound, status)
}

func (s *GatewayTestSuite) TestSearchUpdateDelete() {
	var search gateway.SearchResult
	status, err := s.viewer.Table("members").Search(map[string]string{"name": "an"}, &search)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, status)
	s.GreaterOrEqual(len(search.Results), 2)

	var result map[string]interface{}
	status, _ = s.admin.Table("members").Update(map[string]string{"name": "Bob"}, map[string]string{"email": "robert@example.com"}, &result)
	s.Equal(http.StatusOK, status)
	s.Equal(float64(1), result["rows_updated"])

	status, _ = s.admin.Table("members").Update(map[string]string{"name": "Nobody"}, map[string]string{"email": "x"}, &result)
	s.Equal(http.StatusNotFound, status)

	status, _ = s.admin.Table("members").Delete(map[string]string{"name": "Bob"}, false, &result)
	s.Equal(http.StatusOK, status)
	s.Equal("1 row(s) will be deleted", result["preview"])

	status, _ = s.admin.Table("members").Delete(map[string]string{"name": "Bob"}, true, &result)
	s.Equal(http.StatusOK, status)
	s.Equal("1 row(s) deleted successfully", result["message"])
}

func (s *GatewayTestSuite) TestTeachingStaff() {
	var result gateway.TeachingStaffResult
	status, err := s.viewer.TeachingStaff(map[string]string{"Designation": "prof"}, &result)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, status)
	s.Require().Len(result.Results, 1)
	s.Equal("Ada Lovelace", result.Results[0].Name)
	s.Equal("B1/101", result.Results[0].Office)
}

func (s *GatewayTestSuite) TestMutationEventsReachKafka() {
	status, err := s.admin.Table("courses").Insert(map[string]interface{}{"title": "Compilers", "credits": 6}, nil)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusCreated, status)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   []string{s.kafkaAddr},
		Topic:     mutationsTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for {
		m, err := reader.ReadMessage(ctx)
		s.Require().NoError(err)
		var event gateway.MutationEvent
		s.Require().NoError(json.Unmarshal(m.Value, &event))
		if event.Table == "courses" && string(m.Key) == "courses" {
			s.Equal("CIMS", string(event.Database))
			return
		}
	}
}
