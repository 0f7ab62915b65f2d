package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

var generated = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func sampleRows() []domain.CashReportRow {
	return []domain.CashReportRow{
		{
			Identifier:    "c-1",
			TimeCreated:   generated,
			TimeModified:  generated,
			Price:         decimal.RequireFromString("108"),
			Currency:      "EUR",
			LastName:      "Müller",
			FirstName:     "Jörg",
			ItemID:        1,
			ItemName:      "Yoga course with a very long name that will not fit into the column",
			Payment:       domain.PaymentMethodCashierCash,
			PaymentStatus: domain.PaymentSuccess,
			Gateway:       "cashier",
			OrderID:       "DESK-c-1",
			UserModified:  "Grace Hopper",
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)

	f, err = ParseFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestFormat_FileNameAndContentType(t *testing.T) {
	assert.Equal(t, "cash_report.csv", FormatCSV.FileName())
	assert.Equal(t, "cash_report.pdf", FormatPDF.FileName())
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Contains(t, FormatCSV.ContentType(), "text/csv")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, Headers, records[0])
	assert.Equal(t, "c-1", records[1][0])
	assert.Equal(t, "2026-10-16 12:00", records[1][1])
	assert.Equal(t, "108.00", records[1][3])
	assert.Equal(t, "Müller", records[1][5])
	assert.Equal(t, "success", records[1][10])
	assert.Equal(t, "Grace Hopper", records[1][13])
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatPDF, sampleRows(), generated))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWritePDF_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, nil, generated))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWrite_UnknownFormat(t *testing.T) {
	assert.Error(t, Write(io.Discard, Format("xlsx"), nil, generated))
}

type fakeUploader struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = input
	f.body, _ = io.ReadAll(input.Body)
	return &manager.UploadOutput{Location: "https://bucket/" + *input.Key}, nil
}

func TestS3Archiver_Archive(t *testing.T) {
	up := &fakeUploader{}
	a := &S3Archiver{uploader: up, bucket: "reports"}

	location, err := a.Archive(context.Background(), "/2026/cash_report.csv", []byte("a,b"), "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket/2026/cash_report.csv", location)
	assert.Equal(t, "reports", *up.input.Bucket)
	assert.Equal(t, int64(3), *up.input.ContentLength)
	assert.Equal(t, []byte("a,b"), up.body)
}

func TestS3Archiver_UploadError(t *testing.T) {
	a := &S3Archiver{uploader: &fakeUploader{err: errors.New("denied")}, bucket: "reports"}

	_, err := a.Archive(context.Background(), "k", nil, "text/csv")
	assert.ErrorContains(t, err, "failed to archive report")
}
