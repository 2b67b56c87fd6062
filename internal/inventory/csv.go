package inventory

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// header aliases -> canonical column
var columns = map[string]string{
	"id":           "id",
	"sku":          "id",
	"part_number":  "id",
	"partnumber":   "id",
	"name":         "name",
	"description":  "description",
	"price":        "price",
	"stock":        "stock",
	"quantity":     "stock",
	"qty":          "stock",
	"imageurl":     "imageUrl",
	"image_url":    "imageUrl",
	"image":        "imageUrl",
	"datasheet":    "datasheet",
	"manufacturer": "manufacturer",
	"supplier":     "manufacturer",
	"category":     "category",
	"tags":         "tags",
}

func LoadCSVFile(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog csv")
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV reads a header-led catalog. Rows without an id, or with a negative
// or unparsable price/stock, are skipped with a warning.
func LoadCSV(r io.Reader) ([]Item, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	col := map[string]int{}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if c, ok := columns[key]; ok {
			if _, seen := col[c]; !seen {
				col[c] = i
			}
		}
	}
	if _, ok := col["id"]; !ok {
		return nil, errors.New("catalog csv has no id column")
	}

	var items []Item
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read csv line %d", line)
		}
		get := func(c string) string {
			i, ok := col[c]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		it := Item{
			ID:           get("id"),
			Name:         get("name"),
			Description:  get("description"),
			ImageURL:     get("imageUrl"),
			Datasheet:    get("datasheet"),
			Manufacturer: get("manufacturer"),
			Category:     get("category"),
			Tags:         splitTags(get("tags")),
		}
		if it.ID == "" {
			zlog.Warn().Int("line", line).Msg("catalog row without id skipped")
			continue
		}
		if it.Name == "" {
			it.Name = it.ID
		}
		if p := strings.TrimPrefix(get("price"), "$"); p != "" {
			it.Price, err = decimal.NewFromString(p)
			if err != nil || it.Price.IsNegative() {
				zlog.Warn().Int("line", line).Str("item_id", it.ID).Str("price", p).Msg("bad price, row skipped")
				continue
			}
		}
		if q := get("stock"); q != "" {
			it.Stock, err = strconv.Atoi(q)
			if err != nil || it.Stock < 0 {
				zlog.Warn().Int("line", line).Str("item_id", it.ID).Str("stock", q).Msg("bad stock, row skipped")
				continue
			}
		}
		items = append(items, it)
	}
	return items, nil
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, t := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '|' }) {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
