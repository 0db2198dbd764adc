package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mentix-trading/mentix-api/internal/dto"
	"github.com/mentix-trading/mentix-api/internal/models"
	appErrors "github.com/mentix-trading/mentix-api/pkg/errors"
	"github.com/mentix-trading/mentix-api/pkg/export"
)

type bookingLister interface {
	ListBookings(ctx context.Context, query dto.BookingQuery) ([]models.Booking, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

var bookingExportHeaders = []string{
	"Booking ID", "Client", "Email", "Phone", "Date", "Start", "End",
	"Duration", "Status", "Meeting Link", "Created At",
}

// ExportResult is a rendered booking export ready to be streamed.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders the administrative booking listing as a file.
type ExportService struct {
	bookings bookingLister
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(bookings bookingLister, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{bookings: bookings, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// ExportBookings renders bookings matching the query in the requested format.
func (s *ExportService) ExportBookings(ctx context.Context, query dto.ExportBookingsQuery) (*ExportResult, error) {
	format, err := export.ParseFormat(query.Format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidRequest, err.Error())
	}

	bookings, err := s.bookings.ListBookings(ctx, query.BookingQuery)
	if err != nil {
		return nil, err
	}

	dataset := buildBookingDataset(bookings)
	var payload []byte
	switch format {
	case export.FormatPDF:
		payload, err = s.pdf.Render(dataset, "Mentix Bookings")
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		s.logger.Error("failed to render booking export", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to render export")
	}

	filename := fmt.Sprintf("bookings_%s.%s", s.now().UTC().Format("20060102_150405"), format)
	s.logger.Info("booking export rendered", zap.String("format", string(format)), zap.Int("rows", len(bookings)))
	return &ExportResult{Filename: filename, ContentType: format.ContentType(), Payload: payload}, nil
}

func buildBookingDataset(bookings []models.Booking) export.Dataset {
	rows := make([]map[string]string, 0, len(bookings))
	for _, b := range bookings {
		row := map[string]string{
			"Booking ID":   b.ID,
			"Client":       b.ClientName,
			"Email":        b.ClientEmail,
			"Phone":        deref(b.ClientPhone),
			"Duration":     strconv.Itoa(b.Duration),
			"Status":       string(b.Status),
			"Meeting Link": b.JoinURL(),
			"Created At":   b.CreatedAt.UTC().Format(time.RFC3339),
		}
		if b.Slot != nil {
			row["Date"] = b.Slot.Date.String()
			row["Start"] = b.Slot.StartTime.String()
			row["End"] = b.Slot.EndTime.String()
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: bookingExportHeaders, Rows: rows}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
