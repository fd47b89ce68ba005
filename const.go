package gotap

import "fmt"

const headerAuthorizationKey = "Authorization"
const headerBearerToken = "Bearer %s"

const contentTypeForm = "application/x-www-form-urlencoded"
const contentTypeXML = "text/xml"
const acceptTypeAny = "*/*"

const clientType = "gotap"

var userAgent = fmt.Sprintf("%s/%s", clientType, ClientVersion)

// TAP request parameter names, per the IVOA TAP recommendation.
const (
	paramRequest  = "REQUEST"
	paramLang     = "LANG"
	paramQuery    = "QUERY"
	paramFormat   = "FORMAT"
	paramPhase    = "PHASE"
	paramUpload   = "UPLOAD"
	paramMaxRec   = "MAXREC"
	paramRuntime  = "EXECUTION_DURATION"
	requestDoQuery = "doQuery"
	langADQL       = "ADQL"
)

// OutputFormat is the result serialization requested from a TAP service.
type OutputFormat string

// Output formats understood by Results and Query.
const (
	FormatVOTable      OutputFormat = "votable"
	FormatVOTablePlain OutputFormat = "votable_plain"
	FormatCSV          OutputFormat = "csv"
	FormatTSV          OutputFormat = "tsv"
	FormatJSON         OutputFormat = "json"
	FormatFITS         OutputFormat = "fits"
)
