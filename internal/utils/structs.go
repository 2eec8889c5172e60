package utils

import (
	"fmt"
	"reflect"
)

var ColumnTag = "db"

// StructTagValues lists the column names of a db-tagged struct in field order.
func StructTagValues(input any) []string {
	targetType := structType(reflect.TypeOf(input))

	result := make([]string, 0, targetType.NumField())
	for i := 0; i < targetType.NumField(); i++ {
		if column, ok := columnName(targetType.Field(i)); ok {
			result = append(result, column)
		}
	}

	return result
}

// StructToMap maps column name to field value. Columns named in omit are left out,
// which lets updates skip immutable columns.
func StructToMap(input any, omit ...string) map[string]any {
	itemValue := reflect.ValueOf(input)
	if itemValue.Kind() == reflect.Ptr {
		itemValue = itemValue.Elem()
	}
	itemType := structType(itemValue.Type())

	skip := make(map[string]bool, len(omit))
	for _, o := range omit {
		skip[o] = true
	}

	result := make(map[string]any)
	for i := 0; i < itemType.NumField(); i++ {
		column, ok := columnName(itemType.Field(i))
		if !ok || skip[column] {
			continue
		}
		result[column] = itemValue.Field(i).Interface()
	}

	return result
}

func structType(t reflect.Type) reflect.Type {
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}
	return t
}

func columnName(field reflect.StructField) (string, bool) {
	if field.PkgPath != "" {
		return "", false
	}
	tagValue := field.Tag.Get(ColumnTag)
	if tagValue == "" || tagValue == "-" {
		return "", false
	}
	return tagValue, true
}

func ErrorWrapOrNil(err error, msg string) error {
	if err == nil {
		return nil
	}

	if msg == "" {
		return err
	}

	return fmt.Errorf("%s: %w", msg, err)
}
