package database

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/impulse/params"
	"github.com/dnldd/impulse/score"
	"github.com/google/uuid"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createReportTableSQL = "CREATE TABLE IF NOT EXISTS report (id TEXT PRIMARY KEY, market TEXT, date INTEGER, weeklyimpulse INTEGER, valuezone INTEGER, rsilevel INTEGER, solevel INTEGER, adxlevel INTEGER, failed INTEGER, outcomes TEXT, createdon INTEGER)"
	createParamsTableSQL = "CREATE TABLE IF NOT EXISTS params (id TEXT PRIMARY KEY, params TEXT, createdon INTEGER)"
	persistReportSQL     = "INSERT INTO report(id, market, date, weeklyimpulse, valuezone, rsilevel, solevel, adxlevel, failed, outcomes, createdon) VALUES(?,?,?,?,?,?,?,?,?,?,?)"
	findReportsSQL       = "SELECT id, market, date, outcomes FROM report WHERE market = ? ORDER BY date DESC, createdon DESC LIMIT ?"
	persistParamsSQL     = "INSERT INTO params(id, params, createdon) VALUES(?,?,?)"
	findLatestParamsSQL  = "SELECT params FROM params ORDER BY createdon DESC LIMIT 1"
)

// ReportStorer defines the requirements for storing score cards.
type ReportStorer interface {
	// PersistCard stores the provided score card.
	PersistCard(ctx context.Context, card *score.Card) error
	// FetchCards returns the most recent score cards of a market, newest first.
	FetchCards(ctx context.Context, market string, limit int) ([]score.Card, error)
}

// ParamsStorer defines the requirements for snapshotting parameters.
type ParamsStorer interface {
	// PersistParams stores a snapshot of the provided parameters.
	PersistParams(ctx context.Context, p params.Params) error
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the ReportStorer and ParamsStorer interfaces.
var _ ReportStorer = (*Database)(nil)
var _ ParamsStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	if cfg.User != "" {
		client.SetBasicAuth(cfg.User, cfg.Pass)
	}

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createReportTableSQL},
		{SQL: createParamsTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("creating tables: %d -> %s", idx, errStr)
	}

	return nil
}

// execute runs the provided statement in a transaction.
func (db *Database) execute(ctx context.Context, sql string, args ...any) error {
	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL:              sql,
			PositionalParams: args,
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("statement %d -> %s", idx, errStr)
	}

	return nil
}

// query runs the provided statement and returns its rows keyed by column.
func (db *Database) query(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	resp, err := db.client.Query(ctx, rqlitehttp.SQLStatements{
		{
			SQL:              sql,
			PositionalParams: args,
		},
	}, &rqlitehttp.QueryOptions{Associative: true, Timings: true})
	if err != nil {
		return nil, err
	}

	results := resp.GetQueryResultsAssoc()
	if len(results) == 0 {
		return nil, nil
	}
	if results[0].Error != "" {
		return nil, fmt.Errorf("query error: %s", results[0].Error)
	}

	return results[0].Rows, nil
}

// cardRow returns the report columns of the provided card.
func cardRow(card *score.Card, createdOn time.Time) ([]any, error) {
	if card.ID == "" {
		card.ID = uuid.New().String()
	}

	outcomes, err := json.Marshal(card.Outcomes)
	if err != nil {
		return nil, fmt.Errorf("encoding outcomes: %w", err)
	}

	scores := make([]any, len(score.Kinds))
	for idx, kind := range score.Kinds {
		outcome, ok := card.Outcome(kind)
		if !ok || outcome.Failed() {
			scores[idx] = nil
			continue
		}
		scores[idx] = int(outcome.Score)
	}

	row := []any{card.ID, card.Market, card.Date.Unix()}
	row = append(row, scores...)
	row = append(row, card.Failed(), string(outcomes), createdOn.Unix())

	return row, nil
}

// rowToCard restores a score card from a report row.
func rowToCard(row map[string]any, loc *time.Location) (score.Card, error) {
	var card score.Card

	id, ok := row["id"].(string)
	if !ok {
		return card, fmt.Errorf("unexpected report id: %s", spew.Sdump(row["id"]))
	}
	market, ok := row["market"].(string)
	if !ok {
		return card, fmt.Errorf("unexpected report market: %s", spew.Sdump(row["market"]))
	}
	date, ok := row["date"].(float64)
	if !ok {
		return card, fmt.Errorf("unexpected report date: %s", spew.Sdump(row["date"]))
	}
	outcomes, ok := row["outcomes"].(string)
	if !ok {
		return card, fmt.Errorf("unexpected report outcomes: %s", spew.Sdump(row["outcomes"]))
	}

	card.ID = id
	card.Market = market
	card.Date = time.Unix(int64(date), 0).In(loc)

	err := json.Unmarshal([]byte(outcomes), &card.Outcomes)
	if err != nil {
		return card, fmt.Errorf("decoding outcomes: %w", err)
	}

	return card, nil
}

// PersistCard stores the provided score card to the database.
func (db *Database) PersistCard(ctx context.Context, card *score.Card) error {
	row, err := cardRow(card, time.Now())
	if err != nil {
		return err
	}

	err = db.execute(ctx, persistReportSQL, row...)
	if err != nil {
		return fmt.Errorf("persisting report %s: %w", card.ID, err)
	}

	return nil
}

// FetchCards returns the most recent score cards of the provided market, newest first.
func (db *Database) FetchCards(ctx context.Context, market string, limit int) ([]score.Card, error) {
	rows, err := db.query(ctx, findReportsSQL, market, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching reports for %s: %w", market, err)
	}

	cards := make([]score.Card, 0, len(rows))
	for idx := range rows {
		card, err := rowToCard(rows[idx], time.UTC)
		if err != nil {
			db.cfg.Logger.Error().Msgf("skipping malformed report: %v", err)
			continue
		}
		cards = append(cards, card)
	}

	return cards, nil
}

// PersistParams stores a snapshot of the provided parameters.
func (db *Database) PersistParams(ctx context.Context, p params.Params) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding parameters: %w", err)
	}

	err = db.execute(ctx, persistParamsSQL, uuid.New().String(), string(b), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("persisting parameters: %w", err)
	}

	return nil
}

// LatestParams returns the most recent parameter snapshot.
func (db *Database) LatestParams(ctx context.Context) (params.Params, bool, error) {
	rows, err := db.query(ctx, findLatestParamsSQL)
	if err != nil {
		return params.Params{}, false, fmt.Errorf("fetching latest parameters: %w", err)
	}
	if len(rows) == 0 {
		return params.Params{}, false, nil
	}

	raw, ok := rows[0]["params"].(string)
	if !ok {
		return params.Params{}, false, fmt.Errorf("unexpected parameters row: %s", spew.Sdump(rows[0]))
	}

	p := params.Default()
	err = json.Unmarshal([]byte(raw), &p)
	if err != nil {
		return params.Params{}, false, fmt.Errorf("decoding parameters: %w", err)
	}

	return p, true, nil
}
