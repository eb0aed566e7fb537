package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jsondb/JsonDB/core"
	"github.com/jsondb/JsonDB/db"
	"github.com/jsondb/JsonDB/ps"
)

// Server is a TCP server exposing the JsonDB store: one JSON request per
// line, one JSON response per line.
type Server struct {
	listener   net.Listener
	store      *db.Store
	authConfig *AuthConfig
	logger     *slog.Logger
	mu         sync.Mutex
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewServer creates a server around a store. authConfig may be nil to
// disable authentication.
func NewServer(store *db.Store, authConfig *AuthConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:      store,
		authConfig: authConfig,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	s.logger.Info("server listening", "addr", listener.Addr().String())

	go s.acceptLoop()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.logger.Warn("accept error", "error", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	connID := uuid.NewString()
	logger := s.logger.With("conn", connID, "addr", conn.RemoteAddr().String())
	logger.Info("client connected")

	state := &ConnectionState{}
	reader := bufio.NewReader(conn)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		// One request per line.
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				logger.Warn("read error", "error", err)
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lowered := strings.ToLower(line)
		if lowered == "quit" || lowered == "exit" {
			logger.Info("client disconnected")
			return
		}

		var response Response
		if strings.HasPrefix(strings.ToUpper(line), "AUTH ") {
			response = s.handleAuth(line, state)
			if response.Success && state.Identity() != nil {
				logger.Info("client authenticated", "name", state.Identity().Name, "email", state.Identity().Email)
			}
		} else {
			response = s.executeLine(line, state)
		}

		data, err := EncodeResponse(response)
		if err != nil {
			logger.Warn("failed to encode response", "error", err)
			continue
		}

		if _, err := conn.Write(data); err != nil {
			logger.Warn("write error", "error", err)
			return
		}
	}
}

func (s *Server) executeLine(line string, state *ConnectionState) Response {
	if s.authConfig != nil && s.authConfig.Enabled && !state.IsAuthenticated() {
		return Response{
			Success: false,
			Error:   "authentication required: send AUTH JWT <token>",
		}
	}
	if state.Expired() {
		return Response{
			Success: false,
			Error:   "token expired: re-authenticate",
		}
	}

	req, err := DecodeRequest([]byte(line))
	if err != nil {
		return Response{
			Success: false,
			Error:   fmt.Sprintf("malformed request: %v", err),
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execute(req)
}

func (s *Server) execute(req Request) Response {
	switch req.Op {
	case "create":
		initial, err := decodeOptionalValue(req.Value)
		if err != nil {
			return errorResponse(req.Op, err)
		}
		return s.boolResponse(req.Op, s.store.CreateTable(req.Table, initial))

	case "insert":
		if len(req.Value) == 0 {
			return errorResponse(req.Op, fmt.Errorf("insert requires a value"))
		}
		value, err := core.DecodeValue(req.Value)
		if err != nil {
			return errorResponse(req.Op, err)
		}
		return s.boolResponse(req.Op, s.store.InsertData(req.Table, value))

	case "update":
		newData, err := decodeOptionalValue(req.Value)
		if err != nil {
			return errorResponse(req.Op, err)
		}
		condition, err := req.Where.condition()
		if err != nil {
			return errorResponse(req.Op, err)
		}
		return s.boolResponse(req.Op, s.store.UpdateData(req.Table, condition, newData))

	case "delete":
		condition, err := req.Where.condition()
		if err != nil {
			return errorResponse(req.Op, err)
		}
		return s.boolResponse(req.Op, s.store.DeleteData(req.Table, condition, req.All))

	case "get":
		if req.Table == "" {
			return resultResponse(req.Op, s.store.Database())
		}
		data, exists := s.store.GetData(req.Table)
		if !exists {
			return errorResponse(req.Op, fmt.Errorf("table not found: %s", req.Table))
		}
		return resultResponse(req.Op, data)

	case "tables":
		return rawResultResponse(req.Op, s.store.ListTables())

	case "exists":
		return rawResultResponse(req.Op, map[string]bool{"exists": s.store.TableExists(req.Table)})

	case "info":
		return rawResultResponse(req.Op, s.store.GetTableInfo(req.Table))

	case "history":
		transactions := s.store.History()
		entries := make([]TransactionResponse, 0, len(transactions))
		for _, txn := range transactions {
			entries = append(entries, TransactionResponse{
				Id:     txn.Id,
				When:   txn.When.Format(time.RFC3339),
				Author: txn.Author,
			})
		}
		return rawResultResponse(req.Op, entries)

	case "restore":
		return s.boolResponse(req.Op, s.store.RestoreTo(ps.Transaction{Id: req.Txn}))

	case "export":
		return s.boolResponse(req.Op, s.store.ExportTo(context.Background(), req.URL, nil))

	case "import":
		return s.boolResponse(req.Op, s.store.ImportFrom(context.Background(), req.URL, nil))

	default:
		return errorResponse(req.Op, fmt.Errorf("unknown op: %s", req.Op))
	}
}

// condition translates a wire Matcher into a store predicate. A nil Matcher
// yields a nil Condition.
func (m *Matcher) condition() (core.Condition, error) {
	if m == nil {
		return nil, nil
	}
	want, err := core.DecodeValue(m.Equals)
	if err != nil {
		return nil, fmt.Errorf("malformed where clause: %w", err)
	}
	if m.Field != "" {
		return core.FieldEquals(m.Field, want), nil
	}
	return core.ValueEquals(want), nil
}

func decodeOptionalValue(raw json.RawMessage) (core.Record, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	return core.DecodeValue(raw)
}

func (s *Server) boolResponse(op string, ok bool) Response {
	if !ok {
		err := s.store.LastError()
		msg := "operation failed"
		if err != nil {
			msg = err.Error()
		}
		return Response{Success: false, Type: op, Error: msg}
	}
	return Response{Success: true, Type: op}
}

func errorResponse(op string, err error) Response {
	return Response{Success: false, Type: op, Error: err.Error()}
}

// resultResponse encodes a record with the store's canonical codec so key
// order is preserved on the wire.
func resultResponse(op string, data core.Record) Response {
	encoded, err := core.EncodeValue(data)
	if err != nil {
		return errorResponse(op, err)
	}
	return Response{Success: true, Type: op, Result: encoded}
}

func rawResultResponse(op string, v any) Response {
	encoded, err := json.Marshal(v)
	if err != nil {
		return errorResponse(op, err)
	}
	return Response{Success: true, Type: op, Result: encoded}
}
