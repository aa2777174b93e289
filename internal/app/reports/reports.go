package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/phpdave11/gofpdf"

	"github.com/bodyforce/admin-api/internal/app/stats"
	"github.com/bodyforce/admin-api/internal/domain"
)

const (
	FormatPDF = "pdf"
	FormatCSV = "csv"
)

// Observer is notified of each generated artifact.
type Observer interface {
	ReportGenerated(format string)
}

type Renderer struct {
	Metrics Observer
}

func NewRenderer() *Renderer { return &Renderer{} }

// Filename is the download name of the PDF for r.
func Filename(r stats.Report) string {
	return fmt.Sprintf("BodyForce_Rapport_%s_%s.pdf", domain.FormatDate(r.Period.Start), domain.FormatDate(r.Period.End))
}

// CSVFilename is the download name of the daily attendance export for r.
func CSVFilename(r stats.Report) string {
	return fmt.Sprintf("BodyForce_Presences_%s_%s.csv", domain.FormatDate(r.Period.Start), domain.FormatDate(r.Period.End))
}

// RenderPDF lays out r as a multi-page A4 document with embedded charts.
func (rd *Renderer) RenderPDF(r stats.Report) ([]byte, string, error) {
	hourly, err := barChartPNG("Fréquentation par heure", hourLabels(), r.ByHour[:])
	if err != nil {
		return nil, "", err
	}
	weekly, err := barChartPNG("Fréquentation par jour de la semaine", stats.WeekdayLabels[:], r.ByWeekday[:])
	if err != nil {
		return nil, "", err
	}
	monthLabels, monthValues := bucketSeries(r.ByMonth)
	monthly, err := barChartPNG("Fréquentation par mois", monthLabels, monthValues)
	if err != nil {
		return nil, "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("BodyForce - Rapport de fréquentation", true)
	pdf.SetCreator("bodyforce-api", false)
	pdf.SetCreationDate(r.GeneratedAt)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	heading := func(s string) {
		pdf.SetFont("Helvetica", "B", 16)
		pdf.CellFormat(0, 10, tr(s), "", 1, "L", false, 0, "")
		pdf.Ln(2)
	}
	row := func(label, value string) {
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(90, 8, tr(label), "1", 0, "L", false, 0, "")
		pdf.CellFormat(90, 8, tr(value), "1", 1, "R", false, 0, "")
	}
	image := func(name string, png []byte) {
		pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
		pdf.ImageOptions(name, 10, pdf.GetY(), 190, 0, true, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}

	// Summary.
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, tr("BodyForce - Rapport de fréquentation"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("Du %s au %s", frenchDate(r.Period.Start), frenchDate(r.Period.End))), "", 1, "C", false, 0, "")
	pdf.Ln(6)
	heading("Synthèse")
	row("Jours couverts", strconv.Itoa(r.Period.Days))
	row("Passages", strconv.Itoa(r.TotalPresences))
	row("Badges distincts", strconv.Itoa(r.UniqueMembers))
	row("Moyenne par jour", fmt.Sprintf("%.1f", r.AvgPerDay))
	row("Heure la plus fréquentée", peakHour(r.ByHour))

	pdf.AddPage()
	heading("Par heure")
	image("hourly", hourly)

	pdf.AddPage()
	heading("Par jour de la semaine")
	image("weekly", weekly)

	pdf.AddPage()
	heading("Par mois")
	image("monthly", monthly)

	pdf.AddPage()
	heading("Top 10 des membres")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(15, 8, "#", "1", 0, "C", false, 0, "")
	pdf.CellFormat(105, 8, "Membre", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, "Badge", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 8, tr("Passages"), "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for i, e := range r.TopMembers {
		name := "Badge inconnu"
		if e.Member != nil {
			name = domain.NormalizeHumanName(e.Member.FirstName + " " + e.Member.Name)
		}
		pdf.CellFormat(15, 8, strconv.Itoa(i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(105, 8, tr(name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, tr(string(e.BadgeID)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 8, strconv.Itoa(e.Count), "1", 1, "R", false, 0, "")
	}

	pdf.AddPage()
	heading("Membres")
	row("Total", strconv.Itoa(r.Members.Total))
	row("Actifs", strconv.Itoa(r.Members.Active))
	row("Expirés", strconv.Itoa(r.Members.Expired))
	row("Étudiants", strconv.Itoa(r.Members.Students))
	for _, k := range sortedKeys(r.Members.BySubscription) {
		row("Abonnement "+k, strconv.Itoa(r.Members.BySubscription[k]))
	}
	for _, k := range sortedKeys(r.Members.ByGender) {
		row("Genre "+k, strconv.Itoa(r.Members.ByGender[k]))
	}
	pdf.Ln(6)
	heading("Paiements")
	if r.PaymentsUnavailable {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.CellFormat(0, 8, tr("Données de paiement indisponibles."), "", 1, "L", false, 0, "")
	} else {
		row("Encaissé", euros(r.Payments.Paid))
		row("Paiements encaissés", strconv.Itoa(r.Payments.CountPaid))
		row("Restant dû", euros(r.Payments.Unpaid))
		row("Paiements en attente", strconv.Itoa(r.Payments.CountUnpaid))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("render pdf: %w", err)
	}
	rd.observe(FormatPDF)
	return buf.Bytes(), Filename(r), nil
}

// RenderCSV writes one line per calendar day of the period with its presence
// count. Days without presences are included with a zero count.
func (rd *Renderer) RenderCSV(w io.Writer, r stats.Report) error {
	counts := make(map[string]int, len(r.ByDay))
	for _, b := range r.ByDay {
		counts[b.Key] = b.Count
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write([]string{"date", "presences"}); err != nil {
		return err
	}
	for d, last := domain.CalendarDate(r.Period.Start), domain.CalendarDate(r.Period.End); !d.After(last); d = d.AddDate(0, 0, 1) {
		key := domain.FormatDate(d)
		if err := cw.Write([]string{key, strconv.Itoa(counts[key])}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	rd.observe(FormatCSV)
	return nil
}

func (rd *Renderer) observe(format string) {
	if rd != nil && rd.Metrics != nil {
		rd.Metrics.ReportGenerated(format)
	}
}

func hourLabels() []string {
	out := make([]string, 24)
	for h := range out {
		out[h] = fmt.Sprintf("%02dh", h)
	}
	return out
}

func bucketSeries(bs []stats.Bucket) ([]string, []int) {
	labels := make([]string, len(bs))
	values := make([]int, len(bs))
	for i, b := range bs {
		labels[i] = b.Key
		values[i] = b.Count
	}
	return labels, values
}

func peakHour(hours [24]int) string {
	best := -1
	for h, n := range hours {
		if n > 0 && (best < 0 || n > hours[best]) {
			best = h
		}
	}
	if best < 0 {
		return "-"
	}
	return fmt.Sprintf("%02dh-%02dh", best, (best+1)%24)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
