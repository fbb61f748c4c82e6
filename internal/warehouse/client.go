package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/bigquery/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"demandplanner/internal/config"
	"demandplanner/internal/dataprocessing"
	apierrors "demandplanner/internal/errors"
	"demandplanner/pkg/contracts/domain"
)

// ResultSet is a query result with every cell already converted to a Scalar
type ResultSet struct {
	Columns []string
	Rows    []domain.Row
}

// Client runs forecast-table queries against the BigQuery REST API
type Client struct {
	endpoint   string
	rowLimit   int
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client from the warehouse section of the config.
// The endpoint override is only needed for tests and emulators.
func NewClient(cfg config.WarehouseConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	rowLimit := cfg.RowLimit
	if rowLimit <= 0 {
		rowLimit = config.DefaultWarehouseRowLimit
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultWarehouseTimeout
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		rowLimit:   rowLimit,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "warehouse")),
	}
}

// WithHTTPClient replaces the transport used underneath the bearer token
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// RowLimit returns the maximum number of rows a forecast query returns
func (c *Client) RowLimit() int {
	return c.rowLimit
}

// ForecastQuery returns the SQL used to read the forecast table
func ForecastQuery(s Settings, limit int) string {
	return fmt.Sprintf("SELECT * FROM %s ORDER BY date ASC LIMIT %d", s.Table(), limit)
}

// Query reads up to RowLimit rows of the forecast table ordered by date
func (c *Client) Query(ctx context.Context, s Settings) (*ResultSet, error) {
	return c.run(ctx, s, ForecastQuery(s, c.rowLimit))
}

// TestConnection runs a one-row query and returns the table's columns
func (c *Client) TestConnection(ctx context.Context, s Settings) ([]string, error) {
	rs, err := c.run(ctx, s, fmt.Sprintf("SELECT * FROM %s LIMIT 1", s.Table()))
	if err != nil {
		return nil, err
	}
	return rs.Columns, nil
}

// FetchSeries queries the forecast table and normalizes its rows
func (c *Client) FetchSeries(ctx context.Context, s Settings) (domain.Series, error) {
	rs, err := c.Query(ctx, s)
	if err != nil {
		return nil, err
	}
	return dataprocessing.Normalize(rs.Columns, rs.Rows), nil
}

func (c *Client) run(ctx context.Context, s Settings, sql string) (*ResultSet, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	svc, err := c.service(ctx, s)
	if err != nil {
		return nil, apierrors.NewConfigError("failed to create warehouse client", err)
	}

	logger := c.logger.With(
		slog.String("project_id", s.ProjectID),
		slog.String("dataset_id", s.DatasetID),
		slog.String("table_id", s.TableID),
	)
	start := time.Now()

	resp, err := svc.Jobs.Query(s.ProjectID, &bigquery.QueryRequest{
		Query:        sql,
		UseLegacySql: googleapi.Bool(false),
		TimeoutMs:    c.timeout.Milliseconds(),
	}).Context(ctx).Do()
	if err != nil {
		classified := ClassifyError(err)
		logger.WarnContext(ctx, "warehouse query failed",
			slog.String("error_kind", ErrorKind(classified)),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		return nil, classified
	}

	if !resp.JobComplete {
		return nil, apierrors.NewUpstreamError("the warehouse query did not finish in time", ErrQueryFailed).
			WithContext("job_id", jobID(resp))
	}

	rs := convertResponse(resp)
	logger.InfoContext(ctx, "warehouse query completed",
		slog.Int("columns", len(rs.Columns)),
		slog.Int("rows", len(rs.Rows)),
		slog.Duration("duration", time.Since(start)))
	return rs, nil
}

func (c *Client) service(ctx context.Context, s Settings) (*bigquery.Service, error) {
	base := c.httpClient
	if base == nil {
		base = http.DefaultClient
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.AccessToken, TokenType: "Bearer"})
	hc := &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: base.Transport},
		Timeout:   base.Timeout,
	}

	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	return bigquery.NewService(ctx, opts...)
}

func jobID(resp *bigquery.QueryResponse) string {
	if resp.JobReference == nil {
		return ""
	}
	return resp.JobReference.JobId
}

// numericTypes are converted to NumberScalar; TIMESTAMP arrives as epoch
// seconds in the REST wire format
var numericTypes = map[string]bool{
	"INTEGER":    true,
	"INT64":      true,
	"FLOAT":      true,
	"FLOAT64":    true,
	"NUMERIC":    true,
	"BIGNUMERIC": true,
	"TIMESTAMP":  true,
}

func convertResponse(resp *bigquery.QueryResponse) *ResultSet {
	rs := &ResultSet{}
	var types []string
	if resp.Schema != nil {
		for _, f := range resp.Schema.Fields {
			rs.Columns = append(rs.Columns, f.Name)
			types = append(types, strings.ToUpper(f.Type))
		}
	}

	rs.Rows = make([]domain.Row, 0, len(resp.Rows))
	for _, tr := range resp.Rows {
		row := make(domain.Row, len(rs.Columns))
		for i, cell := range tr.F {
			if i >= len(rs.Columns) {
				break
			}
			var v interface{}
			if cell != nil {
				v = cell.V
			}
			row[rs.Columns[i]] = convertCell(v, types[i])
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs
}

func convertCell(v interface{}, fieldType string) domain.Scalar {
	str, ok := v.(string)
	if !ok {
		return domain.ScalarOf(v)
	}
	if numericTypes[fieldType] {
		if f, err := strconv.ParseFloat(str, 64); err == nil {
			return domain.NumberScalar(f)
		}
	}
	return domain.StringScalar(str)
}
