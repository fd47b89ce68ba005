package gotap

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Job is one asynchronous TAP query: its identity, lifecycle phase and,
// once COMPLETED, its result table. A Job is terminal once its phase is
// COMPLETED, ERROR or ABORTED.
type Job struct {
	ID                string
	RunID             string
	OwnerID           string
	Phase             JobPhase
	Quote             string
	CreationTime      time.Time
	StartTime         time.Time
	EndTime           time.Time
	ExecutionDuration time.Duration
	Destruction       time.Time
	Query             string
	Format            OutputFormat
	ResultURL         string
	ErrorMessage      string

	conn  *Conn
	table *Table // lazily populated by Results
}

func newJobFromUWS(conn *Conn, doc *uwsJob) *Job {
	job := &Job{conn: conn}
	job.refresh(doc)
	return job
}

func (j *Job) refresh(doc *uwsJob) {
	j.ID = doc.JobID
	j.RunID = doc.RunID
	j.OwnerID = doc.OwnerID
	j.Phase = strToJobPhase(doc.Phase)
	j.Quote = doc.Quote
	j.CreationTime = parseUWSTime(doc.CreationTime)
	j.StartTime = parseUWSTime(doc.StartTime)
	j.EndTime = parseUWSTime(doc.EndTime)
	j.ExecutionDuration = time.Duration(doc.ExecutionDuration) * time.Second
	j.Destruction = parseUWSTime(doc.Destruction)
	if q := doc.parameter("query"); q != "" {
		j.Query = q
	}
	if f := doc.parameter("format"); f != "" {
		j.Format = OutputFormat(strings.ToLower(f))
	}
	if href := doc.resultHref("result"); href != "" {
		j.ResultURL = href
	}
	if doc.ErrorSummary != nil {
		j.ErrorMessage = strings.TrimSpace(doc.ErrorSummary.Message)
	}
}

func (j *Job) jobURL(path string, params *url.Values) *url.URL {
	return j.conn.rest.getTapURL("async/"+j.ID+ensureLeadingSlash(path), params)
}

func (j *Job) logCtx(ctx context.Context) context.Context {
	return context.WithValue(ctx, JobIDKey, j.ID)
}

// Reload fetches the job document and refreshes every field.
func (j *Job) Reload(ctx context.Context) error {
	ctx = j.logCtx(ctx)
	resp, err := j.conn.rest.FuncGet(ctx, j.conn.rest, j.jobURL("", nil), j.conn.rest.defaultHeaders(), j.conn.rest.RequestTimeout)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err = checkHTTPStatus(resp, j.ID); err != nil {
		return err
	}
	doc, err := parseUWSJob(resp.Body)
	if err != nil {
		return err
	}
	j.refresh(doc)
	return nil
}

// RefreshPhase polls GET .../async/<jobid>/phase and updates Phase.
func (j *Job) RefreshPhase(ctx context.Context) (JobPhase, error) {
	ctx = j.logCtx(ctx)
	resp, err := j.conn.rest.FuncGet(ctx, j.conn.rest, j.jobURL("phase", nil), j.conn.rest.defaultHeaders(), j.conn.rest.RequestTimeout)
	if err != nil {
		return j.Phase, err
	}
	defer resp.Body.Close()
	if err = checkHTTPStatus(resp, j.ID); err != nil {
		return j.Phase, err
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return j.Phase, err
	}
	j.Phase = strToJobPhase(strings.TrimSpace(string(body)))
	return j.Phase, nil
}

// Run posts PHASE=RUN, moving a PENDING or HELD job into the queue.
func (j *Job) Run(ctx context.Context) error {
	return j.postPhase(ctx, "RUN")
}

// Abort posts PHASE=ABORT. The service moves the job to ABORTED.
func (j *Job) Abort(ctx context.Context) error {
	return j.postPhase(ctx, "ABORT")
}

func (j *Job) postPhase(ctx context.Context, phase string) error {
	ctx = j.logCtx(ctx)
	form := url.Values{}
	form.Set(paramPhase, phase)
	resp, err := j.conn.rest.postForm(ctx, j.jobURL("phase", nil), form, j.conn.rest.RequestTimeout)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkHTTPStatus(resp, j.ID)
}

// Wait blocks until the job reaches a terminal phase, polling the phase
// endpoint with a fixed sleep interval. The context cancels the loop; the
// remote job keeps running unless Abort is called.
func (j *Job) Wait(ctx context.Context) (JobPhase, error) {
	ctx = j.logCtx(ctx)
	interval := j.conn.cfg.PollInterval
	for !j.Phase.isTerminal() {
		select {
		case <-ctx.Done():
			return j.Phase, ctx.Err()
		case <-time.After(interval):
		}
		if _, err := j.RefreshPhase(ctx); err != nil {
			return j.Phase, err
		}
		logger.WithContext(ctx).Debugf("job %v phase: %v", j.ID, j.Phase)
	}
	return j.Phase, nil
}

// Results fetches and decodes the result table of a COMPLETED job. The
// table is fetched once and memoized. For a failed job the error summary
// is returned as a *TapError.
func (j *Job) Results(ctx context.Context) (*Table, error) {
	if j.table != nil {
		return j.table, nil
	}
	if !j.Phase.isTerminal() {
		return nil, &TapError{
			Number:      ErrCodeJobNotFinished,
			JobID:       j.ID,
			Message:     "job is in phase %v; results are not available yet",
			MessageArgs: []interface{}{j.Phase},
		}
	}
	if j.Phase.isFailure() {
		return nil, j.failureError(ctx)
	}
	ctx = j.logCtx(ctx)
	resp, err := j.fetchResult(ctx)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	table, err := decodeResult(resp.Body, j.Format)
	if err != nil {
		return nil, err
	}
	j.table = table
	return table, nil
}

// SaveResults streams the raw result payload to w without decoding it.
// This is the path for FITS output.
func (j *Job) SaveResults(ctx context.Context, w io.Writer) (int64, error) {
	if !j.Phase.isTerminal() {
		return 0, &TapError{
			Number:      ErrCodeJobNotFinished,
			JobID:       j.ID,
			Message:     "job is in phase %v; results are not available yet",
			MessageArgs: []interface{}{j.Phase},
		}
	}
	if j.Phase.isFailure() {
		return 0, j.failureError(ctx)
	}
	ctx = j.logCtx(ctx)
	resp, err := j.fetchResult(ctx)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return io.Copy(w, resp.Body)
}

// fetchResult GETs the declared result URL, or the conventional
// .../results/result location when the job document did not carry one.
// Redirect chains are followed by the underlying client up to maxRedirects.
func (j *Job) fetchResult(ctx context.Context) (*http.Response, error) {
	var target *url.URL
	if j.ResultURL != "" {
		parsed, err := url.Parse(j.ResultURL)
		if err != nil {
			return nil, err
		}
		target = parsed
	} else {
		target = j.jobURL("results/result", nil)
	}
	resp, err := j.conn.rest.FuncGet(ctx, j.conn.rest, target, j.conn.rest.defaultHeaders(), j.conn.rest.RequestTimeout)
	if err != nil {
		return nil, err
	}
	if err = checkHTTPStatus(resp, j.ID); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func (j *Job) failureError(ctx context.Context) error {
	number := ErrCodeJobFailed
	if j.Phase == PhaseAborted {
		number = ErrCodeJobAborted
	}
	message := j.ErrorMessage
	if message == "" && j.Phase == PhaseError {
		// error summary is only in the job document; fetch it once
		if err := j.Reload(ctx); err == nil {
			message = j.ErrorMessage
		}
	}
	if message == "" {
		message = "job finished in phase " + j.Phase.String()
	}
	return &TapError{
		Number:  number,
		JobID:   j.ID,
		Message: message,
	}
}

// Delete removes the job from the service. Terminal and running jobs can
// both be deleted; a running job is aborted first by the service.
func (j *Job) Delete(ctx context.Context) error {
	ctx = j.logCtx(ctx)
	resp, err := j.conn.rest.FuncDelete(ctx, j.conn.rest, j.jobURL("", nil), j.conn.rest.defaultHeaders(), j.conn.rest.RequestTimeout)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkHTTPStatus(resp, j.ID)
}
