package parser

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"smartdoc/internal/model"
)

// ParseRows 将上传的表格字节流解析为有序原始行集
// fileFormat 取 csv/json/xlsx/xml，首行（或对象键）作为列名
func ParseRows(data []byte, fileFormat string) ([]model.RawRecord, error) {
	switch strings.ToLower(strings.TrimSpace(fileFormat)) {
	case "csv":
		return parseCSV(data)
	case "json":
		return parseJSON(data)
	case "xlsx", "xls", "excel":
		return parseExcel(data)
	case "xml":
		return parseXML(data)
	default:
		return nil, fmt.Errorf("不支持的文件格式: %s", fileFormat)
	}
}

func parseCSV(data []byte) ([]model.RawRecord, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // 容忍缺列

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("解析 CSV 失败: %w", err)
	}
	if len(rows) < 2 {
		return nil, &model.DataEmptyError{Stage: "CSV 解析"}
	}

	headers := rows[0]
	return buildRecords(headers, rows[1:]), nil
}

func parseExcel(data []byte) ([]model.RawRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("打开 Excel 失败: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &model.DataEmptyError{Stage: "Excel 解析"}
	}

	// 取第一个非空 sheet
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		if len(rows) >= 2 {
			return buildRecords(rows[0], rows[1:]), nil
		}
	}
	return nil, &model.DataEmptyError{Stage: "Excel 解析"}
}

func parseJSON(data []byte) ([]model.RawRecord, error) {
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		// 兼容 {"rows": [...]} 包装
		var wrapped struct {
			Rows []map[string]any `json:"rows"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil || wrapped.Rows == nil {
			return nil, fmt.Errorf("解析 JSON 失败: %w", err)
		}
		rows = wrapped.Rows
	}
	if len(rows) == 0 {
		return nil, &model.DataEmptyError{Stage: "JSON 解析"}
	}

	// 列顺序取首个对象的键序（Go map 无序，这里按首次出现归并后排序保证确定性）
	columns := make([]string, 0)
	seen := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	records := make([]model.RawRecord, 0, len(rows))
	for i, row := range rows {
		values := make(map[string]string, len(row))
		for k, v := range row {
			values[k] = stringify(v)
		}
		records = append(records, model.RawRecord{
			RowIndex: i,
			Columns:  columns,
			Values:   values,
		})
	}
	return records, nil
}

// parseXML 解析形如 <rows><row><单据号>..</单据号></row></rows> 的平铺行集
func parseXML(data []byte) ([]model.RawRecord, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	type state int
	const (
		atRoot state = iota
		atRow
		atField
	)

	var (
		depth   int
		current map[string]string
		field   string
		buf     strings.Builder
		rows    []map[string]string
		columns []string
		seen    = map[string]bool{}
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("解析 XML 失败: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				current = make(map[string]string)
			} else if depth == 3 {
				field = t.Name.Local
				buf.Reset()
			}
		case xml.CharData:
			if depth == 3 {
				buf.Write(t)
			}
		case xml.EndElement:
			if depth == 3 && current != nil {
				current[field] = strings.TrimSpace(buf.String())
				if !seen[field] {
					seen[field] = true
					columns = append(columns, field)
				}
			} else if depth == 2 && current != nil {
				rows = append(rows, current)
				current = nil
			}
			depth--
		}
	}

	if len(rows) == 0 {
		return nil, &model.DataEmptyError{Stage: "XML 解析"}
	}

	records := make([]model.RawRecord, 0, len(rows))
	for i, row := range rows {
		records = append(records, model.RawRecord{
			RowIndex: i,
			Columns:  columns,
			Values:   row,
		})
	}
	return records, nil
}

func buildRecords(headers []string, dataRows [][]string) []model.RawRecord {
	columns := make([]string, len(headers))
	for i, h := range headers {
		columns[i] = strings.TrimSpace(h)
	}

	records := make([]model.RawRecord, 0, len(dataRows))
	for i, row := range dataRows {
		values := make(map[string]string, len(columns))
		for j, col := range columns {
			if col == "" {
				continue
			}
			if j < len(row) {
				values[col] = strings.TrimSpace(row[j])
			} else {
				values[col] = ""
			}
		}
		records = append(records, model.RawRecord{
			RowIndex: i,
			Columns:  columns,
			Values:   values,
		})
	}
	return records
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		// 整数值避免科学计数
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", t)
	}
}
