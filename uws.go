package gotap

import (
	"encoding/xml"
	"io"
	"time"
)

// Wire representation of a UWS job document. Element names are matched by
// local name, so both prefixed (uws:job) and unprefixed documents decode.
type uwsJob struct {
	XMLName           xml.Name        `xml:"job"`
	JobID             string          `xml:"jobId"`
	RunID             string          `xml:"runId"`
	OwnerID           string          `xml:"ownerId"`
	Phase             string          `xml:"phase"`
	Quote             string          `xml:"quote"`
	CreationTime      string          `xml:"creationTime"`
	StartTime         string          `xml:"startTime"`
	EndTime           string          `xml:"endTime"`
	ExecutionDuration int64           `xml:"executionDuration"`
	Destruction       string          `xml:"destruction"`
	Parameters        []uwsParameter  `xml:"parameters>parameter"`
	Results           []uwsResult     `xml:"results>result"`
	ErrorSummary      *uwsErrorSummary `xml:"errorSummary"`
}

type uwsParameter struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

type uwsResult struct {
	ID   string `xml:"id,attr"`
	Href string `xml:"href,attr"`
}

type uwsErrorSummary struct {
	Type    string `xml:"type,attr"`
	Message string `xml:"message"`
}

type uwsJobList struct {
	XMLName xml.Name    `xml:"jobs"`
	Refs    []uwsJobRef `xml:"jobref"`
}

type uwsJobRef struct {
	ID    string `xml:"id,attr"`
	Href  string `xml:"href,attr"`
	Phase string `xml:"phase"`
}

func parseUWSJob(reader io.Reader) (*uwsJob, error) {
	var doc uwsJob
	if err := xml.NewDecoder(reader).Decode(&doc); err != nil {
		return nil, &TapError{
			Number:      ErrCodeMalformedResponse,
			Message:     "failed to parse UWS job document: %v",
			MessageArgs: []interface{}{err},
		}
	}
	return &doc, nil
}

func parseUWSJobList(reader io.Reader) (*uwsJobList, error) {
	var doc uwsJobList
	if err := xml.NewDecoder(reader).Decode(&doc); err != nil {
		return nil, &TapError{
			Number:      ErrCodeMalformedResponse,
			Message:     "failed to parse UWS job list: %v",
			MessageArgs: []interface{}{err},
		}
	}
	return &doc, nil
}

func (j *uwsJob) parameter(id string) string {
	for _, p := range j.Parameters {
		if p.ID == id {
			return p.Value
		}
	}
	return ""
}

func (j *uwsJob) resultHref(id string) string {
	for _, r := range j.Results {
		if r.ID == id {
			return r.Href
		}
	}
	if len(j.Results) > 0 {
		return j.Results[0].Href
	}
	return ""
}

// parseUWSTime parses the ISO-8601 timestamps UWS services emit. Services
// differ on the trailing Z and on sub-second digits.
func parseUWSTime(in string) time.Time {
	if in == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.999",
		"2006-01-02T15:04:05",
	} {
		if ts, err := time.Parse(layout, in); err == nil {
			return ts
		}
	}
	return time.Time{}
}
