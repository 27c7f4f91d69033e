package recordapi

import (
	"strconv"
)

// OperatorExactMatch is the only where-clause operator the service supports.
const OperatorExactMatch = "ExactMatch"

// Sort directions accepted in an orderBy clause.
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// FieldID is the store-assigned identifier field present on every record.
const FieldID = "Id"

// FieldCreatedOn is the store-assigned creation timestamp (RFC 3339).
const FieldCreatedOn = "CreatedOn"

// Record is a single row of a collection keyed by field name.
type Record map[string]any

// ID returns the record's identifier as a string. The service may send it
// as a number or a string.
func (r Record) ID() string {
	return FormatID(r[FieldID])
}

// FormatID renders an identifier value decoded from JSON.
func FormatID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return ""
	}
}

// Condition restricts a fetch to records whose field matches one of values.
type Condition struct {
	FieldName string   `json:"fieldName"`
	Operator  string   `json:"operator"`
	Values    []string `json:"values"`
}

// Order sorts fetched records by one field.
type Order struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// FetchParams is the body of a fetch call. Fields projects the result;
// an empty list returns every field.
type FetchParams struct {
	Fields  []string    `json:"fields,omitempty"`
	Where   []Condition `json:"where,omitempty"`
	OrderBy []Order     `json:"orderBy,omitempty"`
}

// FetchResponse is returned by POST /v1/collections/:name/fetch.
type FetchResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    []Record `json:"data"`
}

// RecordsRequest is the body of a batched create or update.
type RecordsRequest struct {
	Records []Record `json:"records"`
}

// DeleteRequest is the body of a batched delete.
type DeleteRequest struct {
	RecordIDs []string `json:"recordIds"`
}

// RecordResult reports the outcome for one record of a batch.
type RecordResult struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message,omitempty"`
	Data       Record `json:"data,omitempty"`
}

// BatchResponse is returned by create, update and delete.
type BatchResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Results []RecordResult `json:"results"`
}

// ErrorResponse is the body the service sends with non-2xx statuses.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
