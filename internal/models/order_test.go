package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrder_AttachPaymentReferenceOnce(t *testing.T) {
	o := &Order{}
	assert.NoError(t, o.AttachPaymentReference("PMT1"))
	assert.NoError(t, o.AttachPaymentReference("PMT1"))
	assert.ErrorIs(t, o.AttachPaymentReference("PMT2"), ErrReferenceAlreadySet)
	assert.Equal(t, "PMT1", o.Reference())
}

func TestOrder_UpdateStatusAddsNote(t *testing.T) {
	o := &Order{Status: StatusSnippePending}
	o.UpdateStatus(StatusProcessing, "Payment received via Snippe.")

	assert.Equal(t, StatusProcessing, o.Status)
	assert.True(t, o.IsPaid())
	assert.True(t, o.IsTerminal())
	if assert.Len(t, o.Notes, 1) {
		assert.Contains(t, o.Notes[0].Note, "Payment received via Snippe.")
		assert.Contains(t, o.Notes[0].Note, "from snippe-pending to processing")
	}
}

func TestOrder_HasOnlyDownloadableItems(t *testing.T) {
	assert.False(t, (&Order{}).HasOnlyDownloadableItems())
	assert.True(t, (&Order{Items: []OrderItem{{Downloadable: true}}}).HasOnlyDownloadableItems())
	assert.False(t, (&Order{Items: []OrderItem{{Downloadable: true}, {}}}).HasOnlyDownloadableItems())
}

func TestOrder_Meta(t *testing.T) {
	o := &Order{}
	assert.Empty(t, o.GetMeta(MetaPaymentType))
	o.UpdateMeta(MetaPaymentType, "mobile")
	assert.Equal(t, "mobile", o.GetMeta(MetaPaymentType))
}
