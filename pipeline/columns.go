package pipeline

import (
	"strconv"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

// Column describes one exported field.
type Column struct {
	Key   string
	Label string
	Value func(r *models.Record) interface{}
}

// Columns is the export layout shared by every writer, in output order.
var Columns = []Column{
	{Key: "id", Label: "Идентификатор", Value: func(r *models.Record) interface{} { return r.ID }},
	{Key: "parent_id", Label: "Родительский товар", Value: func(r *models.Record) interface{} {
		if r.ParentID == 0 {
			return nil
		}
		return r.ParentID
	}},
	{Key: "title", Label: "Наименование", Value: func(r *models.Record) interface{} { return r.Title }},
	{Key: "link", Label: "Ссылка", Value: func(r *models.Record) interface{} { return r.Link }},
	{Key: "brand", Label: "Бренд", Value: func(r *models.Record) interface{} { return r.Brand }},
	{Key: "available", Label: "В наличии", Value: func(r *models.Record) interface{} { return r.Available }},
	{Key: "regular_price", Label: "Регулярная цена", Value: func(r *models.Record) interface{} { return derefInt(r.RegularPrice) }},
	{Key: "promo_price", Label: "Промо цена", Value: func(r *models.Record) interface{} { return derefInt(r.PromoPrice) }},
}

// Keys returns the machine-readable column names.
func Keys() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.Key
	}
	return out
}

// Labels returns the display headers.
func Labels() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.Label
	}
	return out
}

// Values extracts the cells of r in column order. Missing values are nil.
func Values(r *models.Record) []interface{} {
	out := make([]interface{}, len(Columns))
	for i, c := range Columns {
		out[i] = c.Value(r)
	}
	return out
}

func derefInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func formatCell(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case bool:
		return strconv.FormatBool(value)
	default:
		return ""
	}
}
