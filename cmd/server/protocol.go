// Package main provides a TCP server for JsonDB.
package main

import (
	"github.com/goccy/go-json"
)

// Request represents one store operation from the client.
type Request struct {
	// Op is one of: create, insert, update, delete, get, tables, exists,
	// info, history, restore, export, import.
	Op    string          `json:"op"`
	Table string          `json:"table,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
	Where *Matcher        `json:"where,omitempty"`
	All   bool            `json:"all,omitempty"`
	URL   string          `json:"url,omitempty"`
	Txn   string          `json:"txn,omitempty"`
}

// Matcher selects records by value equality. With Field set it matches
// mapping-shaped records on a single field instead of the whole record.
// It is the wire-level stand-in for the arbitrary predicates available to
// in-process callers; it is not a query language.
type Matcher struct {
	Field  string          `json:"field,omitempty"`
	Equals json.RawMessage `json:"equals"`
}

// Response represents the server's response to a request.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"` // echoes the op, or "auth"
	Result  json.RawMessage `json:"result,omitempty"`
}

// AuthResponse reports the outcome of an AUTH command.
type AuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity,omitempty"`
	ExpiresIn     int    `json:"expires_in,omitempty"`
}

// TransactionResponse is one history entry.
type TransactionResponse struct {
	Id     string `json:"id"`
	When   string `json:"when"`
	Author string `json:"author,omitempty"`
}

// EncodeResponse serializes a Response to JSON with a newline.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeRequest parses a JSON request from a byte slice.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	err := json.Unmarshal(data, &req)
	return req, err
}
