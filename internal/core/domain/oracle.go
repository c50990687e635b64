package domain

import "strings"

type OracleResponseKind int

const (
	OracleSingle OracleResponseKind = iota
	OracleChunked
)

// OracleResponse is either one text blob or an ordered chunk sequence.
type OracleResponse struct {
	Kind   OracleResponseKind
	Single string
	Chunks []string
}

func SingleResponse(text string) OracleResponse {
	return OracleResponse{Kind: OracleSingle, Single: text}
}

func ChunkedResponse(chunks []string) OracleResponse {
	return OracleResponse{Kind: OracleChunked, Chunks: chunks}
}

// Text normalizes both shapes into one trimmed string.
func (r OracleResponse) Text() string {
	switch r.Kind {
	case OracleChunked:
		return strings.TrimSpace(strings.Join(r.Chunks, ""))
	default:
		return strings.TrimSpace(r.Single)
	}
}
