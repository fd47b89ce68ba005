package gotap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

var random *rand.Rand

func init() {
	random = rand.New(rand.NewSource(time.Now().UnixNano()))
}

// requestGUIDKey is attached to every request for service-side tracing.
// TAP services ignore parameters they do not recognize.
const requestGUIDKey = "request_guid"

// retryCounterKey is attached to a retried request from the second attempt.
const retryCounterKey = "retry_counter"

// requestGUIDReplacer replaces the value of request_guid upon every retry
// so each attempt is traceable on its own. When the URL does not carry a
// request_guid, the URL is returned unchanged.
type requestGUIDReplacer interface {
	replace() *url.URL
}

func newRequestGUIDReplacer(urlPtr *url.URL) requestGUIDReplacer {
	if _, err := url.ParseQuery(urlPtr.RawQuery); err != nil {
		return &transientReplacer{urlPtr}
	}
	return &guidReplacer{urlPtr}
}

type transientReplacer struct {
	urlPtr *url.URL
}

func (r *transientReplacer) replace() *url.URL {
	return r.urlPtr
}

type guidReplacer struct {
	urlPtr *url.URL
}

func (r *guidReplacer) replace() *url.URL {
	vs, err := url.ParseQuery(r.urlPtr.RawQuery)
	if err != nil {
		return r.urlPtr
	}
	if len(vs.Get(requestGUIDKey)) == 0 {
		return r.urlPtr
	}
	vs.Del(requestGUIDKey)
	vs.Add(requestGUIDKey, uuid.New().String())
	r.urlPtr.RawQuery = vs.Encode()
	return r.urlPtr
}

type retryCounterUpdater struct {
	targetURL *url.URL
}

func (r *retryCounterUpdater) replaceOrAdd(retry int) *url.URL {
	vs, err := url.ParseQuery(r.targetURL.RawQuery)
	if err != nil {
		return r.targetURL
	}
	vs.Del(retryCounterKey)
	vs.Add(retryCounterKey, strconv.Itoa(retry))
	r.targetURL.RawQuery = vs.Encode()
	return r.targetURL
}

type waitAlgo struct {
	mutex *sync.Mutex   // guards random
	base  time.Duration // base wait time
	cap   time.Duration // maximum wait time
}

// randSecondDuration chooses a random duration below n, in whole seconds
// once n is large enough to make that meaningful.
func randSecondDuration(n time.Duration) time.Duration {
	if n <= 0 {
		return 0
	}
	if n < 2*time.Second {
		return time.Duration(random.Int63n(int64(n)))
	}
	return time.Duration(random.Int63n(int64(n/time.Second))) * time.Second
}

// decorrelated jitter backoff
func (w *waitAlgo) decorr(attempt int, sleep time.Duration) time.Duration {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	t := 3*sleep - w.base
	switch {
	case t > 0:
		return durationMin(w.cap, randSecondDuration(t)+w.base)
	case t < 0:
		return durationMin(w.cap, randSecondDuration(-t)+3*sleep)
	}
	return w.base
}

var defaultWaitAlgo = &waitAlgo{
	mutex: &sync.Mutex{},
	base:  5 * time.Second,
	cap:   60 * time.Second,
}

type requestFunc func(method, urlStr string, body io.Reader) (*http.Request, error)

type clientInterface interface {
	Do(req *http.Request) (*http.Response, error)
}

type retryHTTP struct {
	ctx     context.Context
	client  clientInterface
	req     requestFunc
	method  string
	fullURL *url.URL
	headers map[string]string
	body    []byte
	timeout time.Duration
}

func newRetryHTTP(ctx context.Context,
	client clientInterface,
	req requestFunc,
	fullURL *url.URL,
	headers map[string]string,
	timeout time.Duration) *retryHTTP {
	instance := retryHTTP{}
	instance.ctx = ctx
	instance.client = client
	instance.req = req
	instance.method = "GET"
	instance.fullURL = fullURL
	instance.headers = headers
	instance.body = nil
	instance.timeout = timeout
	return &instance
}

func (r *retryHTTP) doPost() *retryHTTP {
	r.method = "POST"
	return r
}

func (r *retryHTTP) doDelete() *retryHTTP {
	r.method = "DELETE"
	return r
}

func (r *retryHTTP) setBody(body []byte) *retryHTTP {
	r.body = body
	return r
}

func (r *retryHTTP) execute() (res *http.Response, err error) {
	totalTimeout := r.timeout
	logger.WithContext(r.ctx).Debugf("retryHTTP.totalTimeout: %v", totalTimeout)
	retryCounter := 0
	sleepTime := time.Duration(0)

	var guid requestGUIDReplacer
	var counter *retryCounterUpdater

	for {
		req, err := r.req(r.method, r.fullURL.String(), bytes.NewReader(r.body))
		if err != nil {
			return nil, err
		}
		if req != nil {
			// req can be nil in tests
			req = req.WithContext(r.ctx)
		}
		for k, v := range r.headers {
			req.Header.Set(k, v)
		}
		res, err = r.client.Do(req)
		if err == nil && res.StatusCode < 500 {
			// success, redirects and protocol-level 4xx all surface to the
			// caller; only transport failures and 5xx are retried.
			break
		}

		// context cancel or timeout
		if err != nil {
			var urlError *url.Error
			if errors.As(err, &urlError) {
				if errors.Is(urlError.Err, context.DeadlineExceeded) || errors.Is(urlError.Err, context.Canceled) {
					return res, urlError.Err
				}
				// CheckRedirect refusals are not transport failures
				var te *TapError
				if errors.As(urlError.Err, &te) {
					return res, err
				}
			}
		}

		// a 5xx can be sporadic on archive maintenance windows. retrying often helps.
		if err != nil {
			logger.WithContext(r.ctx).Warnf(
				"failed http connection. no response is returned. err: %v. retrying...", err)
		} else {
			logger.WithContext(r.ctx).Warnf(
				"failed http connection. HTTP Status: %v. retrying...", res.StatusCode)
			res.Body.Close()
		}
		sleepTime = defaultWaitAlgo.decorr(retryCounter, sleepTime)

		if totalTimeout > 0 {
			// if any timeout is set
			totalTimeout -= sleepTime
			if totalTimeout <= 0 {
				if err != nil {
					return nil, fmt.Errorf("timeout after %v attempts. err: %v", retryCounter, err)
				}
				return nil, fmt.Errorf("timeout after %v attempts. HTTP Status: %v", retryCounter, res.StatusCode)
			}
		}
		retryCounter++
		if guid == nil {
			guid = newRequestGUIDReplacer(r.fullURL)
		}
		r.fullURL = guid.replace()
		if counter == nil {
			counter = &retryCounterUpdater{r.fullURL}
		}
		r.fullURL = counter.replaceOrAdd(retryCounter)
		logger.WithContext(r.ctx).Infof("sleeping %v. to timeout: %v. retrying", sleepTime, totalTimeout)

		await := time.NewTimer(sleepTime)
		select {
		case <-await.C:
			// retry the request
		case <-r.ctx.Done():
			await.Stop()
			return res, r.ctx.Err()
		}
	}
	return res, err
}

func durationMin(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
