package internal

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const page = `<!doctype html>
<html>
<head><title>badger inspect {{.Prefix}}</title></head>
<body>
<h3>prefix: {{.Prefix}} ({{len .Items}} keys)</h3>
{{range $k, $v := .Stats}}<p>{{$k}}: {{$v}}</p>{{end}}
<table>
<tr><th>KEY</th><th>TYPE</th><th>TIME</th><th>ENTITY</th><th>DETAIL</th></tr>
{{range .Items}}<tr><td>{{.Key}}</td><td>{{.Type}}</td><td>{{.Timestamp}}</td><td>{{.EntityID}}</td><td>{{.Detail}}</td></tr>
{{end}}</table>
</body>
</html>`

const (
	DefaultPrefix = "msg:"
	maxRows       = 1000
)

type InspectRow struct {
	Key       string
	Type      string
	Timestamp string
	EntityID  string
	Detail    string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// DebugServer renders the raw content of a badger database as an html table.
type DebugServer struct {
	server *http.Server
	log    *slog.Logger
}

func NewDebugServer(db *badger.DB, port int, endpoint string, mapper RowMapper, statsProvider StatsProvider, log *slog.Logger) *DebugServer {
	if mapper == nil {
		mapper = DefaultMapper
	}
	mux := http.NewServeMux()
	mux.Handle(endpoint, InspectHandler(db, mapper, statsProvider))
	return &DebugServer{
		server: &http.Server{
			Addr:              fmt.Sprintf("localhost:%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Start serves in the background until Stop is called.
func (d *DebugServer) Start() {
	go func() {
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.log.Warn("Debug server stopped", "error", err)
		}
	}()
}

func (d *DebugServer) Stop(ctx context.Context) error {
	return d.server.Shutdown(ctx)
}

func InspectHandler(db *badger.DB, mapper RowMapper, statsProvider StatsProvider) http.Handler {
	tmpl := template.Must(template.New("inspect").Parse(page))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = DefaultPrefix
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		err := db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)) && len(data.Items) < maxRows; it.Next() {
				item := it.Item()
				if err := item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})
}

// DefaultMapper reads keys shaped like "<namespace>:<unix nano>:<id>".
func DefaultMapper(key string, val []byte) InspectRow {
	row := InspectRow{
		Key:       key,
		Type:      "RAW",
		Timestamp: "--:--:--",
		EntityID:  "--------",
		Detail:    "Size: " + strconv.Itoa(len(val)) + " bytes",
	}

	parts := splitKey(key)
	if len(parts) >= 3 {
		row.Type = parts[0]
		if tsNano, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
			row.Timestamp = time.Unix(0, tsNano).UTC().Format("15:04:05")
		}
		row.EntityID = parts[2]
		if len(row.EntityID) > 8 {
			row.EntityID = row.EntityID[:8]
		}
	}
	return row
}

// splitKey splits on the first two colons only, ids may contain more.
func splitKey(key string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(key) && len(parts) < 2; i++ {
		if key[i] == ':' {
			parts = append(parts, key[start:i])
			start = i + 1
		}
	}
	return append(parts, key[start:])
}
