// Package serve implements an NDJSON request/response loop over a
// scanner.Core, for callers that keep one scanner process alive.
package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/praetorian-inc/panscan/pkg/scanner"
)

// Version is the server protocol version
const Version = "1.0.0"

// Server manages the streaming scanner
type Server struct {
	core    *scanner.Core
	rules   int
	encoder *json.Encoder
	decoder *json.Decoder
}

// NewServer creates a new streaming server. rules is reported in the ready
// message.
func NewServer(core *scanner.Core, rules int, in io.Reader, out io.Writer) *Server {
	return &Server{
		core:    core,
		rules:   rules,
		encoder: json.NewEncoder(out),
		decoder: json.NewDecoder(bufio.NewReader(in)),
	}
}

// Run answers requests until the input ends, a close request arrives or
// ctx is canceled. The reader goroutine exits once the input is closed.
func (s *Server) Run(ctx context.Context) error {
	if err := s.send(TypeReady, ReadyData{Version: Version, Rules: s.rules}); err != nil {
		return err
	}

	reqChan := make(chan Request, 1)
	errChan := make(chan error, 1)

	go func() {
		for {
			var req Request
			if err := s.decoder.Decode(&req); err != nil {
				errChan <- err
				return
			}
			select {
			case reqChan <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errChan:
			// Requests decoded before the error still get answers.
			for {
				select {
				case req := <-reqChan:
					if done, werr := s.processRequest(req); done || werr != nil {
						return werr
					}
				default:
					if errors.Is(err, io.EOF) {
						return nil
					}
					return s.sendError(TypeDecode, err.Error())
				}
			}
		case req := <-reqChan:
			if done, err := s.processRequest(req); done || err != nil {
				return err
			}
		}
	}
}

// processRequest handles one request. It reports whether the server should
// exit; the error is a failure to write the response.
func (s *Server) processRequest(req Request) (bool, error) {
	switch req.Type {
	case TypeScan:
		return false, s.handleScan(req.Payload)
	case TypeScanBatch:
		return false, s.handleScanBatch(req.Payload)
	case TypeFindings:
		return false, s.handleFindings()
	case TypeClose:
		return true, nil
	default:
		return false, s.sendError(req.Type, "unknown request type: "+req.Type)
	}
}

func (s *Server) handleScan(payload json.RawMessage) error {
	var p ScanPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return s.sendError(TypeScan, err.Error())
	}

	result, err := s.core.Scan(p.Content, p.Source)
	if err != nil {
		return s.sendError(TypeScan, err.Error())
	}
	return s.send(TypeScan, result)
}

func (s *Server) handleScanBatch(payload json.RawMessage) error {
	var p ScanBatchPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return s.sendError(TypeScanBatch, err.Error())
	}

	result, err := s.core.ScanBatch(p.Items)
	if err != nil {
		return s.sendError(TypeScanBatch, err.Error())
	}
	return s.send(TypeScanBatch, result)
}

func (s *Server) handleFindings() error {
	findings, err := s.core.Findings()
	if err != nil {
		return s.sendError(TypeFindings, err.Error())
	}
	return s.send(TypeFindings, findings)
}

func (s *Server) send(reqType string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return s.sendError(reqType, err.Error())
	}
	if err := s.encoder.Encode(Response{Success: true, Type: reqType, Data: data}); err != nil {
		return fmt.Errorf("writing %s response: %w", reqType, err)
	}
	return nil
}

func (s *Server) sendError(reqType, msg string) error {
	if err := s.encoder.Encode(Response{Success: false, Type: reqType, Error: msg}); err != nil {
		return fmt.Errorf("writing %s error: %w", reqType, err)
	}
	return nil
}
