package gotap

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"
)

func TestBuildMultipart(t *testing.T) {
	body, contentType, err := buildMultipart(
		map[string]string{"TABLE_NAME": "mytable", "FORMAT": "csv"},
		map[string]io.Reader{"FILE": strings.NewReader("a,b\n1,2\n")})
	assertNilF(t, err)
	assertStringContainsE(t, contentType, "multipart/form-data")

	_, params, err := mime.ParseMediaType(contentType)
	assertNilF(t, err)
	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])

	fields := map[string]string{}
	var fileData []byte
	var fileContentType string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		assertNilF(t, err)
		data, err := io.ReadAll(part)
		assertNilF(t, err)
		if part.FileName() != "" {
			fileData = data
			fileContentType = part.Header.Get("Content-Type")
		} else {
			fields[part.FormName()] = string(data)
		}
	}
	assertEqualE(t, fields["TABLE_NAME"], "mytable")
	assertEqualE(t, fields["FORMAT"], "csv")
	assertEqualE(t, string(fileData), "a,b\n1,2\n")
	// sniffed from content, csv text comes out as a text type
	assertStringContainsE(t, fileContentType, "text/")
}

func TestBuildMultipartNoFiles(t *testing.T) {
	body, contentType, err := buildMultipart(map[string]string{"ACTION": "delete"}, nil)
	assertNilF(t, err)
	_, params, err := mime.ParseMediaType(contentType)
	assertNilF(t, err)
	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	part, err := reader.NextPart()
	assertNilF(t, err)
	assertEqualE(t, part.FormName(), "ACTION")
	_, err = reader.NextPart()
	assertErrIsE(t, err, io.EOF)
}
