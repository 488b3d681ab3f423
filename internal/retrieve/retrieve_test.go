package retrieve

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/polalpha/aware-gateway/internal/gateway"
	"github.com/polalpha/aware-gateway/internal/sqlbuild"
	"github.com/polalpha/aware-gateway/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Provider) {
	t.Helper()
	p, err := store.Open(context.Background(), store.Config{Type: "sqlite"})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return New(p), p
}

func mustExec(t *testing.T, p *store.Provider, query string, args ...any) {
	t.Helper()
	ctx := context.Background()
	conn, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func deviceFilter(t *testing.T, p *store.Provider, device string) []sqlbuild.Filter {
	t.Helper()
	f, err := sqlbuild.Eq(p.Dialect(), "device_id", device)
	if err != nil {
		t.Fatalf("Eq() error = %v", err)
	}
	return []sqlbuild.Filter{f}
}

const createSensorData = `CREATE TABLE sensor_data (
	device_id TEXT, timestamp INTEGER, double_value_0 REAL, accuracy INTEGER
)`

// --- round trip ---

func TestQuery_RoundTripReturnsInsertedValues(t *testing.T) {
	e, p := newTestEngine(t)
	mustExec(t, p, createSensorData)
	mustExec(t, p, `INSERT INTO sensor_data (device_id, timestamp, double_value_0, accuracy) VALUES (?, ?, ?, ?)`,
		"d1", int64(1000), 1.5, int64(3))

	result, err := e.Query(context.Background(), "sensor_data", deviceFilter(t, p, "d1"),
		gateway.Page{Limit: 10, Offset: 0})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if result.Count != 1 || result.TotalCount != 1 || result.HasMore {
		t.Errorf("Result meta = %+v, want count=1 total=1 hasMore=false", result)
	}
	want := gateway.Record{
		{Name: "device_id", Value: "d1"},
		{Name: "timestamp", Value: int64(1000)},
		{Name: "double_value_0", Value: 1.5},
		{Name: "accuracy", Value: int64(3)},
	}
	if !reflect.DeepEqual(result.Data[0], want) {
		t.Errorf("Data[0] = %#v, want %#v", result.Data[0], want)
	}
}

// --- pagination metadata ---

func TestQuery_HasMoreArithmetic(t *testing.T) {
	e, p := newTestEngine(t)
	mustExec(t, p, createSensorData)
	for ts := 1; ts <= 5; ts++ {
		mustExec(t, p, `INSERT INTO sensor_data (device_id, timestamp) VALUES ('d1', ?)`, ts)
	}

	tests := []struct {
		limit, offset int
		wantCount     int
		wantHasMore   bool
	}{
		{2, 0, 2, true},
		{2, 2, 2, true},
		{2, 4, 1, false},
		{10, 0, 5, false},
		{10, 5, 0, false},
	}

	for _, tt := range tests {
		result, err := e.Query(context.Background(), "sensor_data", deviceFilter(t, p, "d1"),
			gateway.Page{Limit: tt.limit, Offset: tt.offset})
		if err != nil {
			t.Fatalf("Query(limit=%d offset=%d) error = %v", tt.limit, tt.offset, err)
		}
		if result.Count > tt.limit {
			t.Errorf("count %d exceeds limit %d", result.Count, tt.limit)
		}
		if result.Count != tt.wantCount || result.HasMore != tt.wantHasMore {
			t.Errorf("Query(limit=%d offset=%d) = count %d hasMore %v, want count %d hasMore %v",
				tt.limit, tt.offset, result.Count, result.HasMore, tt.wantCount, tt.wantHasMore)
		}
		if result.TotalCount != 5 {
			t.Errorf("TotalCount = %d, want 5", result.TotalCount)
		}
		if got := result.Offset + result.Count; result.HasMore != (got < result.TotalCount) {
			t.Errorf("HasMore = %v inconsistent with offset+count=%d total=%d", result.HasMore, got, result.TotalCount)
		}
	}
}

func TestQuery_FiltersNarrowResults(t *testing.T) {
	e, p := newTestEngine(t)
	mustExec(t, p, createSensorData)
	mustExec(t, p, `INSERT INTO sensor_data (device_id, timestamp) VALUES ('d1', 1000), ('d1', 2000), ('d2', 1500)`)

	d := p.Dialect()
	eq, _ := sqlbuild.Eq(d, "device_id", "d1")
	gte, _ := sqlbuild.GTE(d, "timestamp", int64(1500))

	result, err := e.Query(context.Background(), "sensor_data",
		[]sqlbuild.Filter{eq, gte}, gateway.DefaultPage())
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if result.TotalCount != 1 || result.Count != 1 {
		t.Fatalf("Result = %+v, want exactly the d1/2000 row", result)
	}
	if v, _ := result.Data[0].Get("timestamp"); v != int64(2000) {
		t.Errorf("timestamp = %v, want 2000", v)
	}
}

func TestQuery_RepeatIsIdempotent(t *testing.T) {
	e, p := newTestEngine(t)
	mustExec(t, p, createSensorData)
	mustExec(t, p, `INSERT INTO sensor_data (device_id, timestamp) VALUES ('d1', 1), ('d1', 2), ('d1', 3)`)

	page := gateway.Page{Limit: 2, Offset: 1}
	first, err := e.Query(context.Background(), "sensor_data", deviceFilter(t, p, "d1"), page)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	second, err := e.Query(context.Background(), "sensor_data", deviceFilter(t, p, "d1"), page)
	if err != nil {
		t.Fatalf("Query() repeat error = %v", err)
	}

	// Wall-clock duration varies between runs; everything else must not.
	first.QueryDurationSeconds = 0
	second.QueryDurationSeconds = 0
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated query differs:\nfirst  %#v\nsecond %#v", first, second)
	}
}

// --- large result warning ---

func TestQuery_LargeDatasetWarning(t *testing.T) {
	if testing.Short() {
		t.Skip("seeds 150k rows")
	}
	e, p := newTestEngine(t)
	mustExec(t, p, createSensorData)
	mustExec(t, p, `INSERT INTO sensor_data (device_id, timestamp)
		WITH RECURSIVE cnt(x) AS (SELECT 1 UNION ALL SELECT x+1 FROM cnt WHERE x < 150000)
		SELECT 'd1', x FROM cnt`)

	result, err := e.Query(context.Background(), "sensor_data", deviceFilter(t, p, "d1"),
		gateway.Page{Limit: 10, Offset: 0})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if result.TotalCount != 150000 {
		t.Fatalf("TotalCount = %d, want 150000", result.TotalCount)
	}
	if len(result.Warnings) == 0 || !strings.Contains(result.Warnings[0], "Large dataset") {
		t.Errorf("Warnings = %q, want a large-dataset warning", result.Warnings)
	}
	if result.Count != 10 {
		t.Errorf("Count = %d, want 10; the warning must not change the response", result.Count)
	}
}

func TestQuery_NoWarningBelowThreshold(t *testing.T) {
	e, p := newTestEngine(t)
	mustExec(t, p, createSensorData)
	mustExec(t, p, `INSERT INTO sensor_data (device_id, timestamp) VALUES ('d1', 1)`)

	result, err := e.Query(context.Background(), "sensor_data", deviceFilter(t, p, "d1"), gateway.DefaultPage())
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Warnings = %q for a tiny result set", result.Warnings)
	}
	if result.QueryDurationSeconds < 0 {
		t.Errorf("QueryDurationSeconds = %v, want >= 0", result.QueryDurationSeconds)
	}
}

// --- device table scan ---

func TestTablesForDevices(t *testing.T) {
	e, p := newTestEngine(t)
	mustExec(t, p, createSensorData)
	mustExec(t, p, `CREATE TABLE locations (device_id TEXT, timestamp INTEGER)`)
	mustExec(t, p, `CREATE TABLE study_config (setting TEXT, value TEXT)`)
	mustExec(t, p, `INSERT INTO sensor_data (device_id, timestamp) VALUES ('d1', 1)`)
	mustExec(t, p, `INSERT INTO locations (device_id, timestamp) VALUES ('d2', 1)`)

	tests := []struct {
		name    string
		devices []string
		want    []string
	}{
		{"single device", []string{"d1"}, []string{"sensor_data"}},
		{"two devices", []string{"d1", "d2"}, []string{"locations", "sensor_data"}},
		{"unknown device", []string{"d9"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := e.TablesForDevices(context.Background(), tt.devices)
			if err != nil {
				t.Fatalf("TablesForDevices(%v) error = %v", tt.devices, err)
			}
			if !reflect.DeepEqual(list.Tables, tt.want) {
				t.Errorf("Tables = %v, want %v", list.Tables, tt.want)
			}
			if list.Count != len(tt.want) {
				t.Errorf("Count = %d, want %d", list.Count, len(tt.want))
			}
		})
	}
}

func TestTablesForDevices_NoDevicesRejectedBeforeIO(t *testing.T) {
	stub := &recordingStore{}
	e := New(stub)

	_, err := e.TablesForDevices(context.Background(), nil)
	if !errors.Is(err, gateway.ErrMissingFilter) {
		t.Fatalf("TablesForDevices() error = %v, want ErrMissingFilter", err)
	}
	if stub.acquireCalls != 0 || stub.tablesCalls != 0 {
		t.Errorf("store saw %d Acquire and %d Tables calls during validation, want 0",
			stub.acquireCalls, stub.tablesCalls)
	}
}

// --- validation happens before any store call ---

type recordingStore struct {
	acquireCalls int
	tablesCalls  int
	fail         error
}

func (s *recordingStore) Acquire(context.Context) (*sql.Conn, error) {
	s.acquireCalls++
	if s.fail != nil {
		return nil, s.fail
	}
	return nil, errors.New("recordingStore cannot supply connections")
}

func (s *recordingStore) Tables(context.Context) ([]string, error) {
	s.tablesCalls++
	if s.fail != nil {
		return nil, s.fail
	}
	return nil, nil
}

func (s *recordingStore) Dialect() sqlbuild.Dialect {
	d, _ := sqlbuild.DialectFor("mysql")
	return d
}

func TestQuery_BadPaginationRejectedBeforeIO(t *testing.T) {
	stub := &recordingStore{}
	e := New(stub)
	d := stub.Dialect()
	f, _ := sqlbuild.Eq(d, "device_id", "d1")

	pages := []gateway.Page{
		{Limit: 0},
		{Limit: -10},
		{Limit: gateway.MaxLimit + 1},
		{Limit: 10, Offset: -5},
	}
	for _, page := range pages {
		_, err := e.Query(context.Background(), "sensor_data", []sqlbuild.Filter{f}, page)
		if err == nil {
			t.Errorf("Query(page=%+v) accepted an invalid window", page)
			continue
		}
		if gateway.CategoryOf(err) != gateway.CategoryValidation {
			t.Errorf("Query(page=%+v) category = %v, want validation", page, gateway.CategoryOf(err))
		}
	}
	if stub.acquireCalls != 0 {
		t.Errorf("store saw %d Acquire calls during validation failures, want 0", stub.acquireCalls)
	}
}

func TestQuery_MissingFilterRejectedBeforeIO(t *testing.T) {
	stub := &recordingStore{}
	e := New(stub)

	_, err := e.Query(context.Background(), "sensor_data", nil, gateway.DefaultPage())
	if !errors.Is(err, gateway.ErrMissingFilter) {
		t.Fatalf("Query() error = %v, want ErrMissingFilter", err)
	}
	if stub.acquireCalls != 0 {
		t.Errorf("store saw %d Acquire calls, want 0", stub.acquireCalls)
	}
}

func TestQuery_InvalidTableRejectedBeforeIO(t *testing.T) {
	stub := &recordingStore{}
	e := New(stub)
	f, _ := sqlbuild.Eq(stub.Dialect(), "device_id", "d1")

	_, err := e.Query(context.Background(), "no such table", []sqlbuild.Filter{f}, gateway.DefaultPage())
	if !errors.Is(err, gateway.ErrInvalidTable) {
		t.Fatalf("Query() error = %v, want ErrInvalidTable", err)
	}
	if stub.acquireCalls != 0 {
		t.Errorf("store saw %d Acquire calls, want 0", stub.acquireCalls)
	}
}

func TestQuery_UnreachableStoreIsConnectionError(t *testing.T) {
	stub := &recordingStore{fail: gateway.ConnectionWrap(errors.New("dial tcp: refused"), "database connection failed")}
	e := New(stub)
	f, _ := sqlbuild.Eq(stub.Dialect(), "device_id", "d1")

	_, err := e.Query(context.Background(), "sensor_data", []sqlbuild.Filter{f}, gateway.DefaultPage())
	if gateway.CategoryOf(err) != gateway.CategoryConnection {
		t.Fatalf("Query() category = %v, want connection", gateway.CategoryOf(err))
	}
}
