// Package export renders enriched records into the spreadsheet handed to
// the prospecting team.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/teleconseil/prospect-cli/internal/model"
)

// ErrNoActiveRecords is returned when nothing would end up in the sheet.
var ErrNoActiveRecords = eris.New("export: no active records to export")

const sheetName = "Entreprises"

// headerFill is the corporate blue used for the header row.
const headerFill = "00366092"

var columns = []struct {
	title string
	width float64
}{
	{"Nom", 30},
	{"Adresse", 40},
	{"Téléphone", 20},
	{"Secteur", 20},
	{"SIRET", 18},
	{"SIREN", 15},
	{"Effectif", 15},
	{"État", 15},
	{"Statut", 20},
	{"Date de modification", 25},
	{"FunBooster", 20},
	{"Observation", 30},
	{"Lien OPCO (France Compétences)", 40},
	{"Lien Dirigeant (Pappers)", 50},
	{"Lien Téléphone (PagesJaunes)", 50},
}

// XLSX renders the active records among the given ones into a styled
// workbook and returns its bytes. Records that are not Active are dropped;
// if none remain the export is refused.
func XLSX(records []model.EnrichedRecord) ([]byte, error) {
	active := make([]model.EnrichedRecord, 0, len(records))
	for _, r := range records {
		if r.Status == model.StatusActive {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return nil, ErrNoActiveRecords
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return nil, eris.Wrap(err, "export: add sheet")
	}

	headerStyle := newHeaderStyle()
	header := sheet.AddRow()
	for i, col := range columns {
		cell := header.AddCell()
		cell.SetString(col.title)
		cell.SetStyle(headerStyle)
		sheet.SetColWidth(i, i, col.width)
	}

	bodyStyle := newBodyStyle()
	for _, r := range active {
		row := sheet.AddRow()
		for _, value := range recordValues(r) {
			cell := row.AddCell()
			cell.SetString(value)
			cell.SetStyle(bodyStyle)
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "export: write workbook")
	}
	return buf.Bytes(), nil
}

// Filename returns the timestamped name the sheet is saved under.
func Filename(now time.Time) string {
	return fmt.Sprintf("entreprises_%s.xlsx", now.Format("20060102_150405"))
}

func recordValues(r model.EnrichedRecord) []string {
	return []string{
		r.Name,
		r.Address,
		r.Phone,
		r.Sector,
		r.Siret,
		r.Siren,
		r.Workforce,
		string(r.Status),
		r.Annotation.Status,
		r.Annotation.LastModified,
		r.Annotation.Funbooster,
		r.Annotation.Observation,
		r.OpcoURL,
		r.PappersURL,
		r.PagesJaunesURL,
	}
}

func newHeaderStyle() *xlsx.Style {
	style := xlsx.NewStyle()
	style.Fill = *xlsx.NewFill("solid", headerFill, headerFill)
	font := xlsx.NewFont(11, "Calibri")
	font.Bold = true
	font.Color = "FFFFFFFF"
	style.Font = *font
	style.Alignment = xlsx.Alignment{
		Horizontal: "center",
		Vertical:   "center",
		WrapText:   true,
	}
	style.ApplyFill = true
	style.ApplyFont = true
	style.ApplyAlignment = true
	return style
}

func newBodyStyle() *xlsx.Style {
	style := xlsx.NewStyle()
	style.Alignment = xlsx.Alignment{
		Horizontal: "left",
		Vertical:   "center",
		WrapText:   true,
	}
	style.ApplyAlignment = true
	return style
}
