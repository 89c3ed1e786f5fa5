package gateway

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/tablegate/core"
	"github.com/relabs-tech/tablegate/core/client"
	"github.com/relabs-tech/tablegate/core/csql"
)

var g3Schema = []string{
	`CREATE TABLE members (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, email TEXT, age INTEGER)`,
	`INSERT INTO members (name, email, age) VALUES ('Anna', 'anna@example.com', 31), ('Juan', 'juan@example.com', 45), ('Bob', 'bob@example.com', 28)`,
	`CREATE TABLE Teaching_staff (Faculty_ID INTEGER PRIMARY KEY, FirstName TEXT, MiddleName TEXT, LastName TEXT, Email TEXT)`,
	`CREATE TABLE Specialization (Faculty_ID INTEGER, Discipline_name TEXT, Designation TEXT, Room_number TEXT, Building TEXT)`,
	`CREATE TABLE T_contact (Faculty_ID INTEGER, Work TEXT)`,
	`CREATE TABLE Phone (Work TEXT, Home TEXT, Emergency TEXT)`,
	`INSERT INTO Teaching_staff VALUES (1, 'Ada', NULL, 'Lovelace', 'ada@example.com'), (2, 'Alan', 'M', 'Turing', 'alan@example.com')`,
	`INSERT INTO Specialization VALUES (1, 'CS', 'Prof', '101', 'B1'), (2, 'Math', 'Lecturer', '202', 'B2')`,
	`INSERT INTO T_contact VALUES (1, '5550001'), (2, '5550002')`,
	`INSERT INTO Phone VALUES ('5550001', '5551001', '5552001'), ('5550002', '5551002', '5552002')`,
}

var cimsSchema = []string{
	`CREATE TABLE members (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL)`,
	`INSERT INTO members (name) VALUES ('Cims Member')`,
	`CREATE TABLE courses (id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT NOT NULL UNIQUE, credits INTEGER)`,
	`INSERT INTO courses (title, credits) VALUES ('Databases', 4), ('Compilers', 6)`,
	`CREATE TABLE G3_job_desc (Discipline_name TEXT, Designation TEXT, Room_number TEXT, Building TEXT, Duty TEXT)`,
	`INSERT INTO G3_job_desc VALUES ('CS', 'Prof', '101', 'B1', 'Teaching'), ('Math', 'Lecturer', '999', 'B2', 'Grading')`,
}

// countingProvider hands out handles to sqlite targets and counts acquisitions and releases
type countingProvider struct {
	dbs map[csql.Target]*csql.DB

	mu       sync.Mutex
	down     map[csql.Target]bool
	acquired map[csql.Target]int
	released map[csql.Target]int
}

func (p *countingProvider) Acquire(ctx context.Context, target csql.Target) (*csql.Handle, error) {
	p.mu.Lock()
	down := p.down[target]
	p.mu.Unlock()
	db, ok := p.dbs[target]
	if down || !ok {
		return nil, fmt.Errorf("%w: %s is down", csql.ErrUnavailable, target)
	}
	conn, err := db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", csql.ErrUnavailable, err)
	}
	p.mu.Lock()
	p.acquired[target]++
	p.mu.Unlock()
	return csql.NewHandle(target, db.Dialect, conn, func() error {
		p.mu.Lock()
		p.released[target]++
		p.mu.Unlock()
		return conn.Close()
	}), nil
}

func (p *countingProvider) setDown(target csql.Target, down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.down[target] = down
}

func (p *countingProvider) counts(target csql.Target) (acquired, released int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired[target], p.released[target]
}

type notification struct {
	table     string
	operation core.Operation
	payload   string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) Notify(ctx context.Context, table string, operation core.Operation, payload []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{table: table, operation: operation, payload: string(payload)})
}

type fixture struct {
	provider *countingProvider
	notifier *recordingNotifier
	router   *mux.Router
	gateway  *Gateway
	g3       *csql.DB
	cims     *csql.DB
}

func openTarget(t *testing.T, target csql.Target, statements []string) *csql.DB {
	t.Helper()
	db, err := csql.Open(target, "sqlite", filepath.Join(t.TempDir(), string(target)+".db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	for _, statement := range statements {
		_, err := db.Exec(statement)
		require.NoError(t, err, statement)
	}
	return db
}

func newFixture(t *testing.T, configure ...func(*Builder)) *fixture {
	t.Helper()
	f := &fixture{
		notifier: &recordingNotifier{},
		router:   mux.NewRouter(),
		g3:       openTarget(t, csql.TargetG3, g3Schema),
		cims:     openTarget(t, csql.TargetCIMS, cimsSchema),
	}
	f.provider = &countingProvider{
		dbs:      map[csql.Target]*csql.DB{csql.TargetG3: f.g3, csql.TargetCIMS: f.cims},
		down:     map[csql.Target]bool{},
		acquired: map[csql.Target]int{},
		released: map[csql.Target]int{},
	}
	builder := &Builder{
		Provider: f.provider,
		Router:   f.router,
		Notifier: f.notifier,
	}
	for _, c := range configure {
		c(builder)
	}
	f.gateway = New(builder)
	return f
}

func (f *fixture) admin() client.Client {
	return client.NewWithRouter(f.router).WithAdminAuthorization()
}

func (f *fixture) viewer() client.Client {
	return client.NewWithRouter(f.router).WithRole("viewer")
}

func (f *fixture) as(role string) client.Client {
	return client.NewWithRouter(f.router).WithRole(role)
}

func (f *fixture) anonymous() client.Client {
	return client.NewWithRouter(f.router)
}

// requireBalanced asserts that every acquired connection was released exactly once
func (f *fixture) requireBalanced(t *testing.T) {
	t.Helper()
	for _, target := range []csql.Target{csql.TargetG3, csql.TargetCIMS} {
		acquired, released := f.provider.counts(target)
		require.Equal(t, acquired, released, "connections of %s", target)
	}
}

func (f *fixture) count(t *testing.T, db *csql.DB, query string, args ...interface{}) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, query, args...))
	return n
}
