package gotap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// Conn is a client for one TAP service. It orchestrates the connection
// layer, the job model and the response parsers. A Conn is safe for use
// from a single goroutine; the underlying http.Client pools connections.
type Conn struct {
	cfg  *Config
	rest *tapRestful

	loggedIn bool
	user     string
	closed   bool
}

// checkOpen rejects requests on a closed connection.
func (c *Conn) checkOpen() error {
	if c.closed {
		return ErrInvalidConn
	}
	return nil
}

// Open parses a DSN and returns a connection to the service it names.
func Open(dsn string) (*Conn, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return OpenWithConfig(cfg)
}

// OpenWithConfig returns a connection built from an explicit Config.
func OpenWithConfig(cfg *Config) (*Conn, error) {
	if cfg.Host == "" {
		return nil, ErrEmptyHost
	}
	if cfg.ServerContext == "" {
		return nil, ErrEmptyServerContext
	}
	fillMissingConfigParameters(cfg)
	conn := &Conn{
		cfg:  cfg,
		rest: newRestful(cfg),
	}
	return conn, nil
}

// Close drops the session and invalidates the connection. The remote side
// expires the session on its own schedule.
func (c *Conn) Close(ctx context.Context) error {
	defer func() { c.closed = true }()
	if c.loggedIn {
		return c.Logout(ctx)
	}
	c.rest.clearSession()
	return nil
}

// QueryOptions tunes one query submission. The zero value uses the
// connection defaults.
type QueryOptions struct {
	Format  OutputFormat
	MaxRec  int
	RunID   string // client-chosen job label, passed as RUNID
	Uploads map[string]io.Reader // inline TABLE_UPLOADs, keyed by table name
	NoRun   bool // submit async job in PENDING instead of auto-running it

	// ExecutionDuration asks the service to let the job run for up to this
	// many seconds. The service may clamp it. Zero leaves the service default.
	ExecutionDuration int
}

func (c *Conn) queryForm(query string, opts *QueryOptions) (url.Values, OutputFormat) {
	form := url.Values{}
	form.Set(paramRequest, requestDoQuery)
	form.Set(paramLang, langADQL)
	form.Set(paramQuery, query)
	format := c.cfg.Format
	if opts != nil && opts.Format != "" {
		format = opts.Format
	}
	form.Set(paramFormat, string(format))
	maxRec := c.cfg.MaxRec
	if opts != nil && opts.MaxRec > 0 {
		maxRec = opts.MaxRec
	}
	if maxRec > 0 {
		form.Set(paramMaxRec, strconv.Itoa(maxRec))
	}
	if opts != nil && opts.RunID != "" {
		form.Set("RUNID", opts.RunID)
	}
	if opts != nil && opts.ExecutionDuration > 0 {
		form.Set(paramRuntime, strconv.Itoa(opts.ExecutionDuration))
	}
	if opts != nil && len(opts.Uploads) > 0 {
		specs := make([]string, 0, len(opts.Uploads))
		for name := range opts.Uploads {
			specs = append(specs, fmt.Sprintf("%s,param:%s", name, name))
		}
		form.Set(paramUpload, strings.Join(specs, ";"))
	}
	return form, format
}

func (c *Conn) submit(ctx context.Context, endpoint string, query string, opts *QueryOptions, extra url.Values) (*http.Response, OutputFormat, error) {
	form, format := c.queryForm(query, opts)
	for k, list := range extra {
		for _, v := range list {
			form.Set(k, v)
		}
	}
	target := c.rest.getTapURL(endpoint, nil)

	if opts != nil && len(opts.Uploads) > 0 {
		fields := map[string]string{}
		for k := range form {
			fields[k] = form.Get(k)
		}
		body, contentType, err := buildMultipart(fields, opts.Uploads)
		if err != nil {
			return nil, format, err
		}
		headers := c.rest.defaultHeaders()
		headers["Content-Type"] = contentType
		resp, err := c.rest.FuncPost(ctx, c.rest, target, headers, body, c.rest.RequestTimeout)
		return resp, format, err
	}

	resp, err := c.rest.postForm(ctx, target, form, c.rest.RequestTimeout)
	return resp, format, err
}

// Query runs an ADQL query synchronously against the /sync endpoint and
// decodes the result table.
func (c *Conn) Query(ctx context.Context, query string, opts *QueryOptions) (*Table, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	ctx = c.logCtx(ctx)
	logger.WithContext(ctx).Debugf("sync query: %v", query)
	resp, format, err := c.submit(ctx, "sync", query, opts, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err = checkHTTPStatus(resp, ""); err != nil {
		return nil, err
	}
	return decodeResult(resp.Body, format)
}

// QueryAsync submits an ADQL query to the /async endpoint and returns the
// created Job. Unless opts.NoRun is set, PHASE=RUN is included so the
// service queues the job immediately. Use job.Wait to block until it is
// terminal.
func (c *Conn) QueryAsync(ctx context.Context, query string, opts *QueryOptions) (*Job, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	ctx = c.logCtx(ctx)
	logger.WithContext(ctx).Debugf("async query: %v", query)
	extra := url.Values{}
	if opts == nil || !opts.NoRun {
		extra.Set(paramPhase, "RUN")
	}
	resp, format, err := c.submit(ctx, "async", query, opts, extra)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err = checkHTTPStatus(resp, ""); err != nil {
		return nil, err
	}

	// The UWS 303 redirect to the job document has already been followed
	// by the http client; the job id is in the final URL, and the body is
	// the job document on conforming services.
	doc, parseErr := parseUWSJob(resp.Body)
	if parseErr == nil && doc.JobID != "" {
		job := newJobFromUWS(c, doc)
		if job.Format == "" {
			job.Format = format
		}
		return job, nil
	}
	if jobID := jobIDFromURL(resp.Request.URL); jobID != "" {
		job := &Job{ID: jobID, Phase: PhaseQueued, Query: query, Format: format, conn: c}
		return job, nil
	}
	return nil, &TapError{
		Number:  ErrCodeMissingJobID,
		Message: "service did not return a job identifier",
	}
}

// jobIDFromURL extracts the trailing job id from .../async/<jobid>.
func jobIDFromURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	dir, last := path.Split(strings.TrimSuffix(u.Path, "/"))
	if strings.HasSuffix(strings.TrimSuffix(dir, "/"), "/async") {
		return last
	}
	return ""
}

// LoadJob recovers a Job by id, e.g. one submitted in an earlier session.
func (c *Conn) LoadJob(ctx context.Context, jobID string) (*Job, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	job := &Job{ID: jobID, conn: c}
	if err := job.Reload(ctx); err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs lists the caller's asynchronous jobs known to the service.
func (c *Conn) ListJobs(ctx context.Context) ([]*Job, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	ctx = c.logCtx(ctx)
	resp, err := c.rest.FuncGet(ctx, c.rest, c.rest.getTapURL("async", nil), c.rest.defaultHeaders(), c.rest.RequestTimeout)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err = checkHTTPStatus(resp, ""); err != nil {
		return nil, err
	}
	list, err := parseUWSJobList(resp.Body)
	if err != nil {
		return nil, err
	}
	jobs := make([]*Job, 0, len(list.Refs))
	for _, ref := range list.Refs {
		jobs = append(jobs, &Job{
			ID:    ref.ID,
			Phase: strToJobPhase(ref.Phase),
			conn:  c,
		})
	}
	return jobs, nil
}

// LoadTables fetches the schema metadata of every table the service
// publishes through its VOSI tables endpoint.
func (c *Conn) LoadTables(ctx context.Context) ([]*TableMeta, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	ctx = c.logCtx(ctx)
	resp, err := c.rest.FuncGet(ctx, c.rest, c.rest.getTapURL("tables", nil), c.rest.defaultHeaders(), c.rest.RequestTimeout)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err = checkHTTPStatus(resp, ""); err != nil {
		return nil, err
	}
	return parseTableSet(resp.Body)
}

// LoadTable fetches the metadata of one table by qualified name.
func (c *Conn) LoadTable(ctx context.Context, name string) (*TableMeta, error) {
	tables, err := c.LoadTables(ctx)
	if err != nil {
		return nil, err
	}
	for _, table := range tables {
		if strings.EqualFold(table.QualifiedName(), name) || strings.EqualFold(table.Name, name) {
			return table, nil
		}
	}
	return nil, fmt.Errorf("table %v not found on service", name)
}

// Capabilities fetches the service's VOSI capabilities document.
func (c *Conn) Capabilities(ctx context.Context) (*Capabilities, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	ctx = c.logCtx(ctx)
	resp, err := c.rest.FuncGet(ctx, c.rest, c.rest.getTapURL("capabilities", nil), c.rest.defaultHeaders(), c.rest.RequestTimeout)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err = checkHTTPStatus(resp, ""); err != nil {
		return nil, err
	}
	return parseCapabilities(resp.Body)
}

// UploadTable uploads tabular data into the caller's user schema. Requires
// a login session.
func (c *Conn) UploadTable(ctx context.Context, tableName string, data io.Reader, format OutputFormat) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if !c.loggedIn {
		return ErrNotLoggedIn
	}
	ctx = c.logCtx(ctx)
	fields := map[string]string{
		"TASKID":     "-1",
		"TABLE_NAME": tableName,
		"FORMAT":     string(format),
	}
	body, contentType, err := buildMultipart(fields, map[string]io.Reader{"FILE": data})
	if err != nil {
		return err
	}
	headers := c.rest.defaultHeaders()
	headers["Content-Type"] = contentType
	target := c.rest.getFullURL(c.cfg.UploadContext, nil)
	resp, err := c.rest.FuncPost(ctx, c.rest, target, headers, body, c.rest.RequestTimeout)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkHTTPStatus(resp, "")
}

// DeleteUserTable removes a table from the caller's user schema.
func (c *Conn) DeleteUserTable(ctx context.Context, tableName string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if !c.loggedIn {
		return ErrNotLoggedIn
	}
	ctx = c.logCtx(ctx)
	form := url.Values{}
	form.Set("ACTION", "delete")
	form.Set("TABLE_NAME", tableName)
	target := c.rest.getFullURL(c.cfg.TableEditContext, nil)
	resp, err := c.rest.postForm(ctx, target, form, c.rest.RequestTimeout)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkHTTPStatus(resp, "")
}

// ShareTable shares a user table with a group.
func (c *Conn) ShareTable(ctx context.Context, tableName, groupName, description string) error {
	return c.shareAction(ctx, "CreateOrUpdateItem", tableName, groupName, description)
}

// StopSharingTable revokes a group's access to a user table.
func (c *Conn) StopSharingTable(ctx context.Context, tableName, groupName string) error {
	return c.shareAction(ctx, "RemoveItem", tableName, groupName, "")
}

func (c *Conn) shareAction(ctx context.Context, action, tableName, groupName, description string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if !c.loggedIn {
		return ErrNotLoggedIn
	}
	ctx = c.logCtx(ctx)
	form := url.Values{}
	form.Set("action", action)
	form.Set("resource_type", "0") // 0 is table
	form.Set("title", tableName)
	form.Set("items_list", groupName)
	if description != "" {
		form.Set("description", description)
	}
	target := c.rest.getFullURL(c.cfg.ShareContext, nil)
	resp, err := c.rest.postForm(ctx, target, form, c.rest.RequestTimeout)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkHTTPStatus(resp, "")
}

func (c *Conn) logCtx(ctx context.Context) context.Context {
	if c.user != "" {
		return context.WithValue(ctx, UserKey, c.user)
	}
	return ctx
}

// checkHTTPStatus converts a non-2xx answer into a *TapError. Services
// put a VOTable with QUERY_STATUS=ERROR in 4xx bodies; when one is found
// its message wins over the bare status line.
func checkHTTPStatus(resp *http.Response, jobID string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if strings.Contains(string(body), "VOTABLE") {
		if _, err := parseVOTable(strings.NewReader(string(body))); err != nil {
			var te *TapError
			if errors.As(err, &te) {
				te.HTTPStatus = resp.StatusCode
				te.JobID = jobID
				return te
			}
		}
	}
	return &TapError{
		Number:      ErrCodeServiceError,
		HTTPStatus:  resp.StatusCode,
		JobID:       jobID,
		Message:     "service answered with HTTP %v: %v",
		MessageArgs: []interface{}{resp.StatusCode, strings.TrimSpace(firstLine(string(body)))},
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
