//go:build integration

// Package test runs the gateway against real MySQL targets and a Kafka broker
// in containers. Run with: go test -tags integration ./test/...
package test

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/mux"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/relabs-tech/tablegate/core/audit"
	"github.com/relabs-tech/tablegate/core/client"
	"github.com/relabs-tech/tablegate/core/csql"
	"github.com/relabs-tech/tablegate/core/gateway"
)

const (
	mysqlRootPassword = "testpass"
	mutationsTopic    = "tablegate_mutations"
)

// IntegrationTestSuite starts one MySQL server hosting the databases of both
// targets, and a Kafka broker for the mutation events
type IntegrationTestSuite struct {
	suite.Suite

	network          testcontainers.Network
	mysqlContainer   testcontainers.Container
	zookeeper        testcontainers.Container
	kafkaContainer   testcontainers.Container
	kafkaConn        *kafka.Conn
	kafkaAddr        string
	mysqlAddr        string
	g3               *csql.DB
	cims             *csql.DB
	pool             *csql.Pool
	notifier         *audit.KafkaNotifier
	router           *mux.Router
	admin            client.Client
	viewer           client.Client
	gatewayBuildOpts []func(*gateway.Builder)
}

func (s *IntegrationTestSuite) dsn(database string) string {
	return fmt.Sprintf("root:%s@tcp(%s)/%s?multiStatements=true", mysqlRootPassword, s.mysqlAddr, database)
}

func (s *IntegrationTestSuite) createTopic(topic string, numPartitions int) error {
	if s.kafkaConn == nil {
		return fmt.Errorf("kafka connection is not established")
	}
	err := s.kafkaConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     numPartitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create topic %s: %w", topic, err)
	}
	return nil
}

func (s *IntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	networkName := "tablegate-test-network_" + fmt.Sprintf("%d", time.Now().Unix())
	network, err := testcontainers.GenericNetwork(ctx, testcontainers.GenericNetworkRequest{
		NetworkRequest: testcontainers.NetworkRequest{
			Name:           networkName,
			CheckDuplicate: true,
		},
	})
	s.Require().NoError(err)
	s.network = network

	mysqlReq := testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": mysqlRootPassword,
			"MYSQL_DATABASE":      "cs432g3",
		},
		Networks:       []string{networkName},
		NetworkAliases: map[string][]string{networkName: {"mysql"}},
		WaitingFor:     wait.ForListeningPort("3306/tcp").WithStartupTimeout(3 * time.Minute),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: mysqlReq,
		Started:          true,
	})
	s.Require().NoError(err)
	s.mysqlContainer = mysqlC

	host, err := mysqlC.Host(ctx)
	s.Require().NoError(err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	s.Require().NoError(err)
	s.mysqlAddr = fmt.Sprintf("%s:%s", host, port.Port())

	s.g3, err = csql.Open(csql.TargetG3, "mysql", s.dsn("cs432g3"))
	s.Require().NoError(err)
	// the server accepts connections only after its init scripts ran
	s.Require().Eventually(func() bool { return s.g3.PingContext(ctx) == nil }, 2*time.Minute, time.Second)
	_, err = s.g3.Exec("CREATE DATABASE IF NOT EXISTS cs432cims")
	s.Require().NoError(err)
	s.cims, err = csql.Open(csql.TargetCIMS, "mysql", s.dsn("cs432cims"))
	s.Require().NoError(err)

	s.Require().NoError(execAll(s.g3, g3Fixture))
	s.Require().NoError(execAll(s.cims, cimsFixture))

	zooReq := testcontainers.ContainerRequest{
		Image:        "confluentinc/cp-zookeeper:7.5.0",
		ExposedPorts: []string{"2181/tcp"},
		Env: map[string]string{
			"ZOOKEEPER_CLIENT_PORT": "2181",
			"ZOOKEEPER_TICK_TIME":   "2000",
		},
		WaitingFor:     wait.ForListeningPort("2181/tcp"),
		Networks:       []string{networkName},
		NetworkAliases: map[string][]string{networkName: {"zookeeper"}},
	}
	s.zookeeper, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: zooReq,
		Started:          true,
	})
	s.Require().NoError(err)

	kafkaReq := testcontainers.ContainerRequest{
		Image:        "confluentinc/cp-kafka:7.5.0",
		ExposedPorts: []string{"9092:9092/tcp"},
		Env: map[string]string{
			"KAFKA_BROKER_ID":                        "1",
			"KAFKA_ZOOKEEPER_CONNECT":                "zookeeper:2181",
			"KAFKA_LISTENERS":                        "PLAINTEXT://0.0.0.0:9092,EXTERNAL://0.0.0.0:9093",
			"KAFKA_ADVERTISED_LISTENERS":             "PLAINTEXT://localhost:9092,EXTERNAL://kafka:9093",
			"KAFKA_LISTENER_SECURITY_PROTOCOL_MAP":   "PLAINTEXT:PLAINTEXT,EXTERNAL:PLAINTEXT",
			"KAFKA_INTER_BROKER_LISTENER_NAME":       "EXTERNAL",
			"KAFKA_OFFSETS_TOPIC_REPLICATION_FACTOR": "1",
		},
		WaitingFor:     wait.ForLog("started (kafka.server.KafkaServer)"),
		Networks:       []string{networkName},
		NetworkAliases: map[string][]string{networkName: {"kafka"}},
	}
	s.kafkaContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: kafkaReq,
		Started:          true,
	})
	s.Require().NoError(err)

	kafkaHost, err := s.kafkaContainer.Host(ctx)
	s.Require().NoError(err)
	kafkaPort, err := s.kafkaContainer.MappedPort(ctx, "9092")
	s.Require().NoError(err)
	s.kafkaAddr = fmt.Sprintf("%s:%s", kafkaHost, kafkaPort.Port())

	s.kafkaConn, err = kafka.Dial("tcp", s.kafkaAddr)
	s.Require().NoError(err)
	s.Require().NoError(s.createTopic(mutationsTopic, 1))

	s.notifier, err = audit.NewKafkaNotifier([]string{s.kafkaAddr}, mutationsTopic)
	s.Require().NoError(err)

	s.pool = csql.NewPool(s.g3, s.cims)
	s.router = mux.NewRouter()
	builder := &gateway.Builder{
		Provider: s.pool,
		Router:   s.router,
		Notifier: s.notifier,
	}
	for _, opt := range s.gatewayBuildOpts {
		opt(builder)
	}
	gateway.New(builder)

	s.admin = client.NewWithRouter(s.router).WithAdminAuthorization()
	s.viewer = client.NewWithRouter(s.router).WithRole("viewer")
}

func (s *IntegrationTestSuite) TearDownSuite() {
	ctx := context.Background()
	if s.notifier != nil {
		s.NoError(s.notifier.Close())
	}
	if s.kafkaConn != nil {
		s.kafkaConn.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	for _, c := range []testcontainers.Container{s.kafkaContainer, s.zookeeper, s.mysqlContainer} {
		if c != nil {
			s.NoError(c.Terminate(ctx))
		}
	}
	if s.network != nil {
		s.NoError(s.network.Remove(ctx))
	}
}

func execAll(db *csql.DB, statements []string) error {
	for _, statement := range statements {
		if _, err := db.Exec(statement); err != nil {
			return fmt.Errorf("%s: %w", statement, err)
		}
	}
	return nil
}

var g3Fixture = []string{
	`CREATE TABLE members (id INT AUTO_INCREMENT PRIMARY KEY, name VARCHAR(64) NOT NULL, email VARCHAR(128))`,
	`INSERT INTO members (name, email) VALUES ('Anna', 'anna@example.com'), ('Juan', 'juan@example.com'), ('Bob', 'bob@example.com')`,
	`CREATE TABLE Teaching_staff (Faculty_ID INT PRIMARY KEY, FirstName VARCHAR(32), MiddleName VARCHAR(32), LastName VARCHAR(32), Email VARCHAR(128))`,
	`CREATE TABLE Specialization (Faculty_ID INT, Discipline_name VARCHAR(32), Designation VARCHAR(32), Room_number VARCHAR(8), Building VARCHAR(8))`,
	`CREATE TABLE T_contact (Faculty_ID INT, Work VARCHAR(16))`,
	`CREATE TABLE Phone (Work VARCHAR(16), Home VARCHAR(16), Emergency VARCHAR(16))`,
	`INSERT INTO Teaching_staff VALUES (1, 'Ada', NULL, 'Lovelace', 'ada@example.com')`,
	`INSERT INTO Specialization VALUES (1, 'CS', 'Prof', '101', 'B1')`,
	`INSERT INTO T_contact VALUES (1, '5550001')`,
	`INSERT INTO Phone VALUES ('5550001', '5551001', '5552001')`,
}

var cimsFixture = []string{
	`CREATE TABLE members (id INT AUTO_INCREMENT PRIMARY KEY, name VARCHAR(64) NOT NULL)`,
	`CREATE TABLE courses (id INT AUTO_INCREMENT PRIMARY KEY, title VARCHAR(64) NOT NULL UNIQUE, credits INT)`,
	`CREATE TABLE G3_job_desc (Discipline_name VARCHAR(32), Designation VARCHAR(32), Room_number VARCHAR(8), Building VARCHAR(8))`,
	`INSERT INTO G3_job_desc VALUES ('CS', 'Prof', '101', 'B1')`,
}
