/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package gemroc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-openapi/loads"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"jinr.ru/greenlab/go-gemroc/pkg/config"
	"jinr.ru/greenlab/go-gemroc/pkg/log"
	"jinr.ru/greenlab/go-gemroc/pkg/srv"
)

const (
	DefaultListLimit = 100
	ShutdownTimeout  = 5 * time.Second
)

type Persist struct {
	Dir        string
	FilePrefix string
}

type PersistResponse struct {
	Filename string
}

type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router
	gemroc  *GemrocServer
	swagger *loads.Document
}

func NewApiServer(ctx context.Context, cfg *config.Config, gemroc *GemrocServer) (*ApiServer, error) {
	log.Info("Initializing API server with address: %s", cfg.ApiAddr())

	swagger, err := LoadSwagger()
	if err != nil {
		return nil, err
	}

	s := &ApiServer{
		Context: ctx,
		Config:  cfg,
		gemroc:  gemroc,
		swagger: swagger,
	}
	s.configureRouter()
	return s, nil
}

// logWriter forwards access log lines to the debug log
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	log.Debug("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// Handler returns the router and the docs page wrapped into access logging
// and panic recovery
func (s *ApiServer) Handler() http.Handler {
	return handlers.RecoveryHandler()(handlers.LoggingHandler(logWriter{}, s.docsHandler(s.Router)))
}

// Run serves the API until the context is done
func (s *ApiServer) Run() error {
	log.Debug("Starting API server: address: %s", s.Config.ApiAddr())
	httpServer := &http.Server{
		Handler: s.Handler(),
		Addr:    s.Config.ApiAddr(),
	}
	go func() {
		<-s.Done()
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		httpServer.Shutdown(ctx)
	}()
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	s.Router.HandleFunc(SwaggerPath, s.handleSwagger()).Methods("GET")
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/packets", s.handlePackets()).Methods("GET")
	subRouter.HandleFunc("/packets/{no:[0-9]+}", s.handlePacket()).Methods("GET")
	subRouter.HandleFunc("/packets/{no:[0-9]+}/tree", s.handlePacketTree()).Methods("GET")
	subRouter.HandleFunc("/stats", s.handleStats()).Methods("GET")
	subRouter.HandleFunc("/persist", s.handlePersist()).Methods("POST")
	subRouter.HandleFunc("/flush", s.handleFlush()).Methods("GET")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error while writing response: %s", err)
	}
}

func (s *ApiServer) getRecord(w http.ResponseWriter, r *http.Request) *Record {
	packetNo, err := strconv.ParseUint(mux.Vars(r)["no"], 10, 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	record, err := s.gemroc.State.GetRecord(packetNo)
	var notFound srv.ErrPacketNotFound
	if errors.As(err, &notFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil
	}
	return record
}

func (s *ApiServer) handlePackets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := DefaultListLimit
		if l := r.URL.Query().Get("limit"); l != "" {
			parsed, err := strconv.Atoi(l)
			if err != nil {
				http.Error(w, fmt.Sprintf("Wrong limit: %s", l), http.StatusBadRequest)
				return
			}
			limit = parsed
		}
		log.Debug("Handling packets request: limit: %d", limit)
		records, err := s.gemroc.State.ListRecords(limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []*Record{}
		}
		writeJSON(w, records)
	}
}

func (s *ApiServer) handlePacket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if record := s.getRecord(w, r); record != nil {
			writeJSON(w, record)
		}
	}
}

func (s *ApiServer) handlePacketTree() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record := s.getRecord(w, r)
		if record == nil {
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := record.Packet.Tree().Format(w); err != nil {
			log.Error("Error while writing packet tree: %s", err)
		}
	}
}

func (s *ApiServer) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.gemroc.Stats())
	}
}

func (s *ApiServer) handlePersist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		persist := &Persist{}
		err := json.NewDecoder(r.Body).Decode(persist)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		log.Debug("Handling persist request: dir: %s filePrefix: %s", persist.Dir, persist.FilePrefix)

		filename, err := s.gemroc.Persist(persist.Dir, persist.FilePrefix)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, PersistResponse{Filename: filename})
	}
}

func (s *ApiServer) handleFlush() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling flush request")
		if err := s.gemroc.Flush(); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
		}
	}
}
