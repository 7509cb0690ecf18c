package aggregate

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withObsrvr/sms-stats/internal/ledger"
	"github.com/withObsrvr/sms-stats/internal/metrics"
	"github.com/withObsrvr/sms-stats/internal/sms"
)

func smsLine(address, name, typ, body string) string {
	return `  <sms protocol="0" address="` + address + `" contact_name="` + name +
		`" date="1534621033000" readable_date="Sat, 18 Aug 2018 12:57:13 MST" type="` + typ +
		`" subject="null" body="` + body +
		`" toa="null" sc_toa="null" service_center="null" read="1" status="-1" locked="0" />`
}

func TestRunEndToEnd(t *testing.T) {
	input := strings.Join([]string{
		smsLine("+15550001", "Ann", "2", "hello"),
		`  <sms protocol="0" address="+15550003" type="2" />`,
		smsLine("+15550002", "Bob", "1", "hi &amp; bye"),
	}, "\n")

	res, err := New().Run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Len(t, res.Contacts, 2)
	assert.Equal(t, int64(1), res.Errors)
	assert.Equal(t, int64(1), res.ErrorsByKind[sms.KindMissingField])
	assert.Equal(t, int64(3), res.Lines)
	assert.Equal(t, int64(3), res.Candidates)
	assert.Equal(t, int64(2), res.Messages)

	assert.Equal(t, []ledger.Contact{
		{Address: "+15550001", ContactName: "Ann", CountTo: 1, LengthTo: 5},
		{Address: "+15550002", ContactName: "Bob", CountFrom: 1, LengthFrom: 8},
	}, res.Contacts)
}

func TestRunSkipsNonRecords(t *testing.T) {
	input := strings.Join([]string{
		`<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>`,
		`<!--File Created By SMS Backup & Restore v10.05.602-->`,
		`<smses count="2" backup_set="x">`,
		smsLine("+1", "A", "1", "x"),
		``,
		smsLine("+1", "A", "2", "yz"),
		`</smses>`,
	}, "\r\n")

	res, err := New().Run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, int64(7), res.Lines)
	assert.Equal(t, int64(2), res.Candidates)
	assert.Equal(t, int64(0), res.Errors)
	require.Len(t, res.Contacts, 1)
	assert.Equal(t, ledger.Contact{
		Address: "+1", ContactName: "A",
		CountTo: 1, LengthTo: 2,
		CountFrom: 1, LengthFrom: 1,
	}, res.Contacts[0])
}

func TestRunInvalidNumberIsNotFatal(t *testing.T) {
	bad := strings.Replace(smsLine("+1", "A", "2", "x"), `date="1534621033000"`, `date="soon"`, 1)
	input := bad + "\n" + smsLine("+2", "B", "2", "y") + "\n"

	res, err := New().Run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.ErrorsByKind[sms.KindInvalidNumber])
	require.Len(t, res.Contacts, 1)
	assert.Equal(t, "+2", res.Contacts[0].Address)
}

func TestRunEmptyInput(t *testing.T) {
	res, err := New().Run(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, res.Contacts)
	assert.Equal(t, int64(0), res.Lines)
}

func TestRunRecordsMetrics(t *testing.T) {
	m := metrics.New("")
	input := strings.Join([]string{
		`<smses count="3">`,
		smsLine("+1", "A", "2", "x"),
		smsLine("+1", "A", "1", "x"),
		smsLine("+2", "B", "3", "x"),
		`<sms address="+9" />`,
	}, "\n")

	_, err := New(WithMetrics(m)).Run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.LinesRead))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LinesSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesParsed.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesParsed.WithLabelValues("received")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesParsed.WithLabelValues("other")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ParseErrors.WithLabelValues("missing_field")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Contacts))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Run(ctx, strings.NewReader(smsLine("+1", "A", "2", "x")))
	assert.True(t, errors.Is(err, context.Canceled))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestRunReadError(t *testing.T) {
	_, err := New().Run(context.Background(), failingReader{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}
