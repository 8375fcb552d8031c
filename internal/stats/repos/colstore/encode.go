package colstore

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"github.com/statlinehq/statline/internal/stats/domain"
)

// Schema-level metadata keys. Entries embed their own lifecycle so a
// partition file is fully self-describing: a schema change in one partition
// never forces a flush of the others.
const (
	metaCreatedAt = "statline.created_at_unix"
	metaTTL       = "statline.ttl_seconds"
)

// inferSchema derives an Arrow schema from the table's columns. String wins
// over numeric when a column is mixed, and float wins over int, so that no
// observed value is narrowed.
func inferSchema(t domain.Table, createdAt time.Time, ttl time.Duration) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(t.Columns))
	for _, col := range t.Columns {
		fields = append(fields, arrow.Field{Name: col, Type: inferType(t, col), Nullable: true})
	}
	md := arrow.NewMetadata(
		[]string{metaCreatedAt, metaTTL},
		[]string{
			strconv.FormatInt(createdAt.Unix(), 10),
			strconv.FormatInt(int64(ttl/time.Second), 10),
		},
	)
	return arrow.NewSchema(fields, &md)
}

func inferType(t domain.Table, col string) arrow.DataType {
	var sawInt, sawFloat, sawBool bool
	for _, r := range t.Rows {
		switch r[col].(type) {
		case nil:
		case string:
			return arrow.BinaryTypes.String
		case bool:
			sawBool = true
		case float32, float64:
			sawFloat = true
		case int, int32, int64:
			sawInt = true
		default:
			return arrow.BinaryTypes.String
		}
	}
	switch {
	case sawFloat:
		return arrow.PrimitiveTypes.Float64
	case sawInt:
		return arrow.PrimitiveTypes.Int64
	case sawBool:
		return arrow.FixedWidthTypes.Boolean
	}
	return arrow.BinaryTypes.String
}

// writeTable serializes t as a zstd-compressed Arrow IPC stream.
func writeTable(w io.Writer, t domain.Table, createdAt time.Time, ttl time.Duration) error {
	schema := inferSchema(t, createdAt, ttl)
	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()

	for i, col := range t.Columns {
		if err := appendColumn(builder.Field(i), t, col); err != nil {
			return err
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithZstd())
	if err := writer.Write(record); err != nil {
		writer.Close()
		return fmt.Errorf("write record: %w", err)
	}
	return writer.Close()
}

func appendColumn(b array.Builder, t domain.Table, col string) error {
	switch fb := b.(type) {
	case *array.StringBuilder:
		for _, r := range t.Rows {
			v, ok := r[col]
			if !ok || v == nil {
				fb.AppendNull()
				continue
			}
			if s, ok := v.(string); ok {
				fb.Append(s)
			} else {
				fb.Append(fmt.Sprintf("%v", v))
			}
		}
	case *array.Float64Builder:
		for _, r := range t.Rows {
			f, ok := r.Float(col)
			if !ok {
				fb.AppendNull()
				continue
			}
			fb.Append(f)
		}
	case *array.Int64Builder:
		for _, r := range t.Rows {
			f, ok := r.Float(col)
			if !ok {
				fb.AppendNull()
				continue
			}
			fb.Append(int64(f))
		}
	case *array.BooleanBuilder:
		for _, r := range t.Rows {
			v, ok := r[col].(bool)
			if !ok {
				fb.AppendNull()
				continue
			}
			fb.Append(v)
		}
	default:
		return fmt.Errorf("unsupported builder %T for column %q", b, col)
	}
	return nil
}

// readTable decodes an Arrow IPC stream back into a table, returning the
// embedded creation time and TTL alongside the rows.
func readTable(r io.Reader) (domain.Table, time.Time, time.Duration, error) {
	reader, err := ipc.NewReader(r)
	if err != nil {
		return domain.Table{}, time.Time{}, 0, fmt.Errorf("open ipc reader: %w", err)
	}
	defer reader.Release()

	schema := reader.Schema()
	createdAt, ttl, err := entryLifecycle(schema)
	if err != nil {
		return domain.Table{}, time.Time{}, 0, err
	}

	cols := make([]string, 0, len(schema.Fields()))
	for _, f := range schema.Fields() {
		cols = append(cols, f.Name)
	}
	table := domain.NewTable(cols...)

	for reader.Next() {
		record := reader.Record()
		for i := 0; i < int(record.NumRows()); i++ {
			row := make(domain.Row, len(cols))
			for j, col := range cols {
				if v := scalarAt(record.Column(j), i); v != nil {
					row[col] = v
				}
			}
			table.Rows = append(table.Rows, row)
		}
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		return domain.Table{}, time.Time{}, 0, fmt.Errorf("read ipc stream: %w", err)
	}
	return table, createdAt, ttl, nil
}

func entryLifecycle(schema *arrow.Schema) (time.Time, time.Duration, error) {
	md := schema.Metadata()
	createdIdx := md.FindKey(metaCreatedAt)
	ttlIdx := md.FindKey(metaTTL)
	if createdIdx < 0 || ttlIdx < 0 {
		return time.Time{}, 0, fmt.Errorf("partition entry missing lifecycle metadata")
	}
	createdUnix, err := strconv.ParseInt(md.Values()[createdIdx], 10, 64)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("bad created_at metadata: %w", err)
	}
	ttlSecs, err := strconv.ParseInt(md.Values()[ttlIdx], 10, 64)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("bad ttl metadata: %w", err)
	}
	return time.Unix(createdUnix, 0), time.Duration(ttlSecs) * time.Second, nil
}

func scalarAt(arr arrow.Array, idx int) any {
	if arr.IsNull(idx) {
		return nil
	}
	switch a := arr.(type) {
	case *array.String:
		return a.Value(idx)
	case *array.Int64:
		return a.Value(idx)
	case *array.Float64:
		return a.Value(idx)
	case *array.Boolean:
		return a.Value(idx)
	}
	return nil
}
