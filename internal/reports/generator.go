package reports

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/Boris-Bot69/fitness-ios/internal/workouts"
	"github.com/Boris-Bot69/fitness-ios/internal/zones"
	"github.com/jung-kurt/gofpdf"
)

const (
	fontName = "Arial"
	noData   = "n/a"
)

// Generator renders single workout reports as PDF.
type Generator struct {
	now func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// WorkoutPDF renders quick facts, the overview, zone distributions and the
// pace table of d.
func (g *Generator) WorkoutPDF(d *workouts.WorkoutDetail) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Workout "+d.ExternalID, false)
	pdf.SetCreationDate(g.now())
	pdf.AddPage()

	pdf.SetFont(fontName, "B", 16)
	pdf.Cell(0, 10, "Workout report")
	pdf.Ln(8)

	pdf.SetFont(fontName, "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("%s - %s UTC", d.StartTime.UTC().Format("2006-01-02 15:04:05"), d.EndTime.UTC().Format("15:04:05")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Activity type %d, id %s", d.ActivityType, d.ExternalID))
	pdf.Ln(10)

	section(pdf, "Summary")
	rows := [][2]string{
		{"Duration", formatDuration(d.Duration)},
		{"Distance", formatUnit(d.Distance, "%.0f m")},
		{"Energy", formatUnit(d.Kcal, "%.0f kcal")},
		{"Terrain up / down", fmt.Sprintf("%.1f m / %.1f m", d.TerrainUp, d.TerrainDown)},
		{"Heart rate avg / min / max", fmt.Sprintf("%.0f / %s / %s bpm", d.HeartRateAvg, formatUnit(d.HeartRateMin, "%.0f"), formatUnit(d.HeartRateMax, "%.0f"))},
		{"Speed avg / min / max", fmt.Sprintf("%.1f / %s / %s km/h", d.SpeedAvg, formatUnit(d.SpeedMin, "%.1f"), formatUnit(d.SpeedMax, "%.1f"))},
		{"Pace best / worst", fmt.Sprintf("%s / %s min/km", formatPace(d.PaceMin), formatPace(d.PaceMax))},
	}
	for _, r := range rows {
		pdf.CellFormat(60, 6, r[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, r[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	section(pdf, "Training zones")
	drawZones(pdf, "Heart rate", d.TrainingZones.HeartRate)
	drawZones(pdf, "Speed", d.TrainingZones.Speed)
	pdf.Ln(6)

	section(pdf, "Kilometer pace")
	drawPaceTable(pdf, d)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont(fontName, "B", 13)
	pdf.Cell(0, 8, title)
	pdf.Ln(8)
	pdf.SetFont(fontName, "", 10)
}

func drawZones(pdf *gofpdf.Fpdf, label string, dist *zones.Distribution) {
	pdf.CellFormat(30, 6, label, "1", 0, "L", false, 0, "")
	if dist == nil {
		pdf.CellFormat(150, 6, "no zones registered", "1", 1, "L", false, 0, "")
		return
	}
	for i, n := range dist.Counts() {
		share := 0.0
		if dist.Total > 0 {
			share = float64(n) / float64(dist.Total) * 100
		}
		pdf.CellFormat(30, 6, fmt.Sprintf("Z%d %d (%.0f%%)", i, n, share), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
}

func drawPaceTable(pdf *gofpdf.Fpdf, d *workouts.WorkoutDetail) {
	if len(d.KilometerPace) == 0 {
		pdf.Cell(0, 6, "No distance recorded")
		pdf.Ln(6)
		return
	}

	pdf.SetFont(fontName, "B", 9)
	for _, h := range []string{"Km", "Pace", "Time", "Avg HR", "Max HR", "Avg km/h", "Max km/h"} {
		pdf.CellFormat(25, 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(fontName, "", 9)
	for _, seg := range d.KilometerPace {
		cells := []string{
			strconv.Itoa(seg.Index),
			formatPace(seg.TotalSeconds()),
			fmt.Sprintf("%.0f s", seg.ElapsedSeconds),
			formatUnit(seg.AvgHeartRate, "%.0f"),
			formatUnit(seg.MaxHeartRate, "%.0f"),
			formatUnit(seg.AvgSpeed, "%.1f"),
			formatUnit(seg.MaxSpeed, "%.1f"),
		}
		for _, c := range cells {
			pdf.CellFormat(25, 6, c, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func formatUnit(v *float64, format string) string {
	if v == nil {
		return noData
	}
	return fmt.Sprintf(format, *v)
}

func formatDuration(v *float64) string {
	if v == nil {
		return noData
	}
	return (time.Duration(math.Round(*v)) * time.Second).String()
}

// formatPace prints seconds per kilometre as m:ss.
func formatPace(seconds float64) string {
	total := int(math.Round(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
