package gotap

// ClientVersion is the version of the TAP client library. It is reported
// to services in the User-Agent header.
const ClientVersion = "1.4.0"
