package service_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"testing"
	"time"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/render"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/service"
	"github.com/fieldops/fieldservice-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNoticeService_RenderNoticeAndReceipt(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))
	ctx := context.Background()
	dev := f.createDevelopment(t, investorRequest(nil))
	first := f.schedule(t, dev.ID).Payments[0]

	var notice bytes.Buffer
	require.NoError(t, f.notices.RenderPaymentNotice(ctx, first.ID, &notice))
	assert.Contains(t, notice.String(), "Payment notice")
	assert.Contains(t, notice.String(), "Residencial Los Pinos")
	assert.Contains(t, notice.String(), "$3,000.00")
	assert.NotContains(t, notice.String(), "OVERDUE")

	err := f.notices.RenderReceipt(ctx, first.ID, io.Discard)
	assert.ErrorIs(t, err, service.ErrPaymentNotPaid)

	f.collect(t, first.ID, "2026-01-10")

	var receipt bytes.Buffer
	require.NoError(t, f.notices.RenderReceipt(ctx, first.ID, &receipt))
	assert.Contains(t, receipt.String(), "Payment receipt")
	assert.Contains(t, receipt.String(), "SPEI-2026-01-10")
	assert.Contains(t, receipt.String(), "Laura Méndez")

	err = f.notices.RenderPaymentNotice(ctx, first.ID, io.Discard)
	assert.ErrorIs(t, err, service.ErrPaymentNotPending)

	err = f.notices.RenderPaymentNotice(ctx, uuid.New(), io.Discard)
	assert.ErrorIs(t, err, service.ErrPaymentNotFound)
}

func TestNoticeService_OverdueNotice(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.March, 15))
	dev := f.createDevelopment(t, investorRequest(nil))

	var notice bytes.Buffer
	require.NoError(t, f.notices.RenderPaymentNotice(context.Background(), f.schedule(t, dev.ID).Payments[0].ID, &notice))
	assert.Contains(t, notice.String(), "OVERDUE")
}

func TestNoticeService_Archive(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))
	ctx := context.Background()
	dev := f.createDevelopment(t, investorRequest(nil))
	first := f.schedule(t, dev.ID).Payments[0]

	_, err := f.notices.OpenArchived(ctx, first.ID, service.DocumentKindNotice)
	assert.ErrorIs(t, err, service.ErrNotFound)

	archived, err := f.notices.ArchiveNotice(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, service.DocumentKindNotice, archived.Kind)
	assert.Equal(t, service.ArchiveKey(dev.ID, "2026-01", "notice"), archived.Key)
	assert.Positive(t, archived.Size)

	rc, err := f.notices.OpenArchived(ctx, first.ID, service.DocumentKindNotice)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Len(t, body, int(archived.Size))
	assert.Contains(t, string(body), "Payment notice")

	f.collect(t, first.ID, "2026-01-10")
	archived, err = f.notices.ArchiveNotice(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, service.DocumentKindReceipt, archived.Kind)

	rc, err = f.notices.OpenArchived(ctx, first.ID, service.DocumentKindReceipt)
	require.NoError(t, err)
	defer rc.Close()

	_, err = f.notices.OpenArchived(ctx, first.ID, "invoice")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestNoticeService_ArchiveWithoutStorage(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))
	dev := f.createDevelopment(t, investorRequest(nil))

	renderer, err := render.New(render.Issuer{Name: "FieldOps Servicios"})
	require.NoError(t, err)
	notices := service.NewNoticeService(
		repository.NewPaymentRepository(f.db),
		repository.NewDevelopmentRepository(f.db),
		f.investors, renderer, nil,
		service.NewFixedCalendar(testutil.Date(2026, time.January, 1)),
		zap.NewNop())

	_, err = notices.ArchiveNotice(context.Background(), f.schedule(t, dev.ID).Payments[0].ID)
	assert.ErrorIs(t, err, service.ErrStorageDisabled)
}

func TestNoticeService_CSVExports(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))
	ctx := context.Background()
	dev := f.createDevelopment(t, investorRequest(nil))
	f.collect(t, f.schedule(t, dev.ID).Payments[0].ID, "2026-01-10")

	var schedule bytes.Buffer
	require.NoError(t, f.notices.ExportScheduleCSV(ctx, dev.ID, &schedule))
	rows, err := csv.NewReader(&schedule).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, "period", rows[0][0])
	assert.Equal(t, []string{"2026-01", "1", "2026-01-10", "3000.00"}, rows[1][:4])
	assert.Equal(t, string(domain.PaymentStatusPaid), rows[1][7])
	assert.Equal(t, string(domain.PaymentStatusPending), rows[2][7])

	err = f.notices.ExportScheduleCSV(ctx, uuid.New(), io.Discard)
	assert.ErrorIs(t, err, service.ErrDevelopmentNotFound)

	var investors bytes.Buffer
	require.NoError(t, f.notices.ExportInvestorCSV(ctx, &investors))
	rows, err = csv.NewReader(&investors).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "TOTAL", rows[2][0])
}
