package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvbuilder_backend/internal/models"
	"cvbuilder_backend/internal/testutil"
	"cvbuilder_backend/pkg/apperrors"
)

func newExportFixture(t *testing.T, pdf PDFRenderer) (*exportService, *testutil.Store, *fakeFiles) {
	t.Helper()
	store := testutil.NewStore()
	files := newFakeFiles()
	svc := NewExportService(store.CVs(), fakeHTML{}, pdf, files).(*exportService)
	svc.now = fixedClock
	return svc, store, files
}

func TestExportService_RenderPDFStoresCopy(t *testing.T) {
	t.Parallel()
	svc, store, files := newExportFixture(t, &fakePDF{data: []byte("%PDF-1.4")})
	ctx := context.Background()
	u := seedUser(t, store, "a@example.com", models.TierFree)
	cv := addCV(t, store, u.ID, "Senior Go / Backend")
	before, err := store.CVs().FindByID(nil, cv.ID)
	require.NoError(t, err)

	export, err := svc.RenderPDF(ctx, nil, u.ID, cv.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Senior_Go_Backend.pdf", export.FileName)
	assert.Equal(t, []byte("%PDF-1.4"), export.Data)

	key := "exports/" + u.ID + "/" + cv.ID + ".pdf"
	assert.True(t, files.has(key))
	assert.Equal(t, "/files/"+key, export.URL)

	stored, err := store.CVs().FindByID(nil, cv.ID)
	require.NoError(t, err)
	md := stored.Metadata.Data()
	assert.Equal(t, key, md.PDFKey)
	require.NotNil(t, md.LastGenerated)
	assert.True(t, md.LastGenerated.Equal(fixedNow))
	// экспорт не поднимает резюме в списке
	assert.True(t, stored.UpdatedAt.Equal(before.UpdatedAt))
}

func TestExportService_RenderPDFUnavailable(t *testing.T) {
	t.Parallel()
	svc, store, files := newExportFixture(t, &fakePDF{err: errors.New("chrome not found")})
	u := seedUser(t, store, "a@example.com", models.TierFree)
	cv := addCV(t, store, u.ID, "Mine")

	_, err := svc.RenderPDF(context.Background(), nil, u.ID, cv.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrPDFUnavailable)
	assert.Empty(t, files.files)
}

func TestExportService_Ownership(t *testing.T) {
	t.Parallel()
	svc, store, _ := newExportFixture(t, &fakePDF{data: []byte("%PDF")})
	ctx := context.Background()
	owner := seedUser(t, store, "a@example.com", models.TierFree)
	other := seedUser(t, store, "b@example.com", models.TierFree)
	cv := addCV(t, store, owner.ID, "Mine")

	_, err := svc.RenderHTML(ctx, nil, other.ID, cv.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrCVForbidden)
	_, err = svc.RenderPDF(ctx, nil, other.ID, cv.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrCVForbidden)
}

func TestExportService_RenderHTMLTemplateOverride(t *testing.T) {
	t.Parallel()
	svc, store, _ := newExportFixture(t, nil)
	u := seedUser(t, store, "a@example.com", models.TierFree)
	cv := addCV(t, store, u.ID, "Mine")

	html, err := svc.RenderHTML(context.Background(), nil, u.ID, cv.ID, models.TemplateExecutive)
	require.NoError(t, err)
	assert.Contains(t, html, `data-template="executive"`)
}

func TestPDFFileName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "cv.pdf", pdfFileName("  "))
	assert.Equal(t, "My_CV_2026.pdf", pdfFileName("My CV (2026)"))
}
