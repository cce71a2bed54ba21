package db

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	rethink "gopkg.in/gorethink/gorethink.v3"
)

const dbNameDefault string = "hibiki"
const baseDbPoolConnections int = 2
const maxDbPoolConnections int = 20

//Options holds what is needed to reach the database
type Options struct {
	Address  string
	Database string
}

//Connection contains a handle to the database
type Connection struct {
	session *rethink.Session
}

//Init creates a new connection pool for the database at the given address
func Init(opts Options) (*Connection, error) {
	if opts.Address == "" {
		return nil, fmt.Errorf("no database address was provided")
	}
	if opts.Database == "" {
		logrus.Warnf("DB name was not provided, falling back to default `%v`", dbNameDefault)
		opts.Database = dbNameDefault
	}
	//Create new connection pool to db
	session, err := rethink.Connect(rethink.ConnectOpts{
		Address:    opts.Address,
		Database:   opts.Database,
		InitialCap: baseDbPoolConnections,
		MaxOpen:    maxDbPoolConnections,
	})
	if err != nil {
		logrus.Errorf("Failed to create connection to rethinkdb instance at address %v because %v.", opts.Address, err)
		return nil, fmt.Errorf("failed to create connection to rethinkdb instance at address %v: %w", opts.Address, err)
	}

	res := Connection{
		session: session,
	}

	//Ensure database and required tables exist, and wait for it all to be ready
	res.CreateDatabase(opts.Database)
	res.CreateTables()
	res.ensureTriggerCounter()

	return &res, nil
}

//Close cleanly terminates the database connection
func (db *Connection) Close() {
	logrus.Info("Terminating DB connection...")
	_ = db.session.Close()
}

var tables = []struct {
	name       string
	primaryKey string
}{
	{guildsTable, "id"},
	{triggersTable, "id"},
	{countersTable, "id"},
	{eventsTable, "id"},
}

//CreateTables ensures all tables needed exist.
func (db *Connection) CreateTables() {
	for _, table := range tables {
		_, err := rethink.TableCreate(table.name, rethink.TableCreateOpts{
			PrimaryKey: table.primaryKey,
		}).RunWrite(db.session)
		if err != nil {
			logrus.Debugf("Did not create %v table due to error %v", table.name, err)
		}
	}
	_, err := rethink.Table(triggersTable).IndexCreate("guild_id").RunWrite(db.session)
	if err != nil {
		logrus.Debugf("Did not create guild_id index on triggers table due to error %v", err)
	}
	//Wait for all tables
	for _, table := range tables {
		if err := rethink.Table(table.name).Wait().Exec(db.session); err != nil {
			logrus.Warnf("Failed waiting for %v table to become ready due to error %v", table.name, err)
		}
	}
	if err := rethink.Table(triggersTable).IndexWait().Exec(db.session); err != nil {
		logrus.Warnf("Failed waiting for triggers table indexes due to error %v", err)
	}
}

//WaitTablesRead blocks until every table is ready for reads
func (db *Connection) WaitTablesRead() {
	waitOpts := rethink.WaitOpts{
		WaitFor: "ready_for_reads",
	}
	for _, table := range tables {
		if err := rethink.Table(table.name).Wait(waitOpts).Exec(db.session); err != nil {
			logrus.Warnf("Failed waiting for %v table to become readable due to error %v", table.name, err)
		}
	}
}

//CreateDatabase ensures the hibiki database exists
func (db *Connection) CreateDatabase(dbName string) {
	_, err := rethink.DBCreate(dbName).RunWrite(db.session)
	if err != nil {
		logrus.Debugf("Did not create %v DB due to error %v", dbName, err)
	}
	if err := rethink.DB(dbName).Wait().Exec(db.session); err != nil {
		logrus.Warnf("Failed waiting for %v DB to become ready due to error %v", dbName, err)
	}
}

//checkWrite turns a write response with errors into an error
func checkWrite(resp rethink.WriteResponse, err error) (rethink.WriteResponse, error) {
	if err != nil {
		return resp, err
	}
	if resp.Errors > 0 {
		return resp, fmt.Errorf("%v", resp.FirstError)
	}
	return resp, nil
}

//gorethink does not take a context, so the best we can do is refuse to start work once it is cancelled
func ctxDone(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
