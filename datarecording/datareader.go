package datarecording

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/fatih/structs"
)

// SQLiteReader reads back records written by a SQLiteWriter.
type SQLiteReader struct {
	*sql.DB

	dbName  string
	typeMap map[string]reflect.Type
}

// NewSQLiteReader creates a reader for the database at path. The ".sqlite3"
// suffix is appended. Init must be called before use.
func NewSQLiteReader(path string) *SQLiteReader {
	return &SQLiteReader{
		dbName:  path,
		typeMap: make(map[string]reflect.Type),
	}
}

// Init establishes a connection to the database.
func (r *SQLiteReader) Init() {
	db, err := sql.Open("sqlite3", r.dbName+".sqlite3")
	if err != nil {
		panic(err)
	}

	r.DB = db
}

// MapTable establishes a mapping between a database table and a Go struct
// type. The mapping is required before querying a table.
func (r *SQLiteReader) MapTable(tableName string, sampleEntry any) {
	r.typeMap[tableName] = reflect.TypeOf(sampleEntry)
}

// ListTables returns the names of all the mapped tables.
func (r *SQLiteReader) ListTables() []string {
	tables := make([]string, 0, len(r.typeMap))
	for table := range r.typeMap {
		tables = append(tables, table)
	}

	return tables
}

// Query reads all the rows of a mapped table in insertion order.
func (r *SQLiteReader) Query(tableName string) ([]any, error) {
	structType, found := r.typeMap[tableName]
	if !found {
		return nil, fmt.Errorf("table %s is not mapped", tableName)
	}

	names := structs.Names(reflect.New(structType).Elem().Interface())
	sqlStr := "SELECT " + strings.Join(names, ", ") + " FROM " + tableName

	rows, err := r.DB.Query(sqlStr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]any, 0)
	for rows.Next() {
		entry := reflect.New(structType).Elem()

		fields := make([]any, entry.NumField())
		for i := range fields {
			fields[i] = entry.Field(i).Addr().Interface()
		}

		if err := rows.Scan(fields...); err != nil {
			return nil, err
		}

		results = append(results, entry.Interface())
	}

	return results, rows.Err()
}

// Close closes the database.
func (r *SQLiteReader) Close() error {
	return r.DB.Close()
}
