package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/harbordocs/harbor/internal/auth"
	"github.com/harbordocs/harbor/internal/domain"
	"github.com/harbordocs/harbor/internal/logger"
	"github.com/harbordocs/harbor/internal/repository"
	"github.com/harbordocs/harbor/internal/storage"
)

// driveQuery selects the file types the pipeline can process. Trashed files
// are excluded.
const driveQuery = "(mimeType='application/pdf' or mimeType='text/plain' or " +
	"mimeType='application/vnd.google-apps.document') and trashed=false"

const driveFields = "nextPageToken, files(id, name, mimeType, size, modifiedTime)"

// ErrSyncInProgress reports that the user already has a running sync job.
var ErrSyncInProgress = errors.New("a sync is already running for this user")

// DriveConfig holds tunables for the sync service.
type DriveConfig struct {
	DocumentPrefix string
	PageSize       int64
}

// DriveService syncs a user's Google Drive library into the document store.
type DriveService struct {
	userRepo     *repository.UserRepository
	documentRepo *repository.DocumentRepository
	syncRepo     *repository.SyncJobRepository
	storage      storage.ObjectStorage
	processor    *ProcessorService
	google       DriveClientFactory
	logger       *logger.Logger

	documentPrefix string
	pageSize       int64
}

// DriveClientFactory builds a Drive API client from stored OAuth tokens. The
// token source is returned alongside so refreshed credentials can be read
// back after the sync. Replaceable in tests.
type DriveClientFactory func(ctx context.Context, tokens *domain.OAuthTokens) (*drive.Service, oauth2.TokenSource, error)

// NewDriveClientFactory builds the production factory on top of the OAuth
// client's refreshing token source.
func NewDriveClientFactory(google *auth.GoogleClient) DriveClientFactory {
	return func(ctx context.Context, tokens *domain.OAuthTokens) (*drive.Service, oauth2.TokenSource, error) {
		ts := google.TokenSource(ctx, tokens)
		client, err := drive.NewService(ctx, option.WithTokenSource(ts))
		return client, ts, err
	}
}

// NewDriveService creates a new DriveService.
func NewDriveService(
	userRepo *repository.UserRepository,
	documentRepo *repository.DocumentRepository,
	syncRepo *repository.SyncJobRepository,
	objectStorage storage.ObjectStorage,
	processor *ProcessorService,
	clientFactory DriveClientFactory,
	log *logger.Logger,
	cfg *DriveConfig,
) *DriveService {
	documentPrefix := "documents"
	var pageSize int64 = 100
	if cfg != nil {
		if cfg.DocumentPrefix != "" {
			documentPrefix = cfg.DocumentPrefix
		}
		if cfg.PageSize > 0 {
			pageSize = cfg.PageSize
		}
	}
	return &DriveService{
		userRepo:       userRepo,
		documentRepo:   documentRepo,
		syncRepo:       syncRepo,
		storage:        objectStorage,
		processor:      processor,
		google:         clientFactory,
		logger:         log.WithField("component", "drive"),
		documentPrefix: documentPrefix,
		pageSize:       pageSize,
	}
}

// SyncUser runs one full Drive sync for a user: list supported files,
// download new or changed ones, reset them to PENDING, then process every
// pending document. The run is recorded as a sync job; per-file failures are
// counted but don't abort the run.
func (s *DriveService) SyncUser(ctx context.Context, userID string) (*domain.SyncJob, error) {
	running, err := s.syncRepo.HasRunning(ctx, userID)
	if err != nil {
		return nil, err
	}
	if running {
		return nil, ErrSyncInProgress
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.GoogleTokens.RefreshToken == "" && user.GoogleTokens.AccessToken == "" {
		return nil, fmt.Errorf("user has no google credentials")
	}

	now := time.Now()
	job := &domain.SyncJob{
		ID:        uuid.NewString(),
		UserID:    userID,
		JobType:   domain.JobTypeDriveSync,
		Status:    domain.JobStatusRunning,
		StartedAt: &now,
	}
	if err := s.syncRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to record sync job: %w", err)
	}

	log := s.logger.WithFields(logger.Fields{
		"job_id":  job.ID,
		"user_id": userID,
	})

	if err := s.runSync(ctx, user, job, log); err != nil {
		completed := time.Now()
		job.Status = domain.JobStatusFailed
		job.Error = err.Error()
		job.CompletedAt = &completed
		if uerr := s.syncRepo.Update(ctx, job); uerr != nil {
			log.WithField("error", uerr.Error()).Error("failed to record sync failure")
		}
		return job, err
	}

	completed := time.Now()
	job.Status = domain.JobStatusCompleted
	job.CompletedAt = &completed
	if err := s.syncRepo.Update(ctx, job); err != nil {
		log.WithField("error", err.Error()).Error("failed to record sync completion")
	}

	log.WithField("count", job.FilesProcessed).Info("drive sync completed")
	return job, nil
}

func (s *DriveService) runSync(ctx context.Context, user *domain.User, job *domain.SyncJob, log *logger.Logger) error {
	client, tokenSource, err := s.google(ctx, &user.GoogleTokens)
	if err != nil {
		return fmt.Errorf("failed to create drive client: %w", err)
	}
	// The token source refreshes expired access tokens during the run; keep
	// whatever it ends up holding so the next sync starts from fresh
	// credentials.
	defer s.persistRefreshedTokens(ctx, user, tokenSource, log)

	files, err := s.listFiles(ctx, client)
	if err != nil {
		return fmt.Errorf("failed to list drive files: %w", err)
	}
	job.FilesTotal = len(files)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.syncFile(ctx, client, user.ID, f); err != nil {
			log.WithFields(logger.Fields{
				"file_id": f.Id,
				"error":   err.Error(),
			}).Warn("file sync failed")
			continue
		}
		job.FilesProcessed++
	}

	// Process whatever the sync left pending, including leftovers from
	// earlier failed runs.
	pending, err := s.documentRepo.ListPendingByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to list pending documents: %w", err)
	}
	for _, doc := range pending {
		if err := s.processor.ProcessDocument(ctx, doc.ID); err != nil {
			log.WithFields(logger.Fields{
				"document_id": doc.ID,
				"error":       err.Error(),
			}).Warn("document processing failed")
		}
	}

	return nil
}

// persistRefreshedTokens writes the token source's current credentials back
// to the user record when the access token changed during the sync. Failures
// are logged; the sync outcome is not affected.
func (s *DriveService) persistRefreshedTokens(ctx context.Context, user *domain.User, ts oauth2.TokenSource, log *logger.Logger) {
	tok, err := ts.Token()
	if err != nil || tok.AccessToken == user.GoogleTokens.AccessToken {
		return
	}

	refreshed := domain.OAuthTokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = user.GoogleTokens.RefreshToken
	}
	if err := s.userRepo.UpdateTokens(ctx, user.ID, refreshed); err != nil {
		log.WithField("error", err.Error()).Warn("failed to persist refreshed google tokens")
	}
}

func (s *DriveService) listFiles(ctx context.Context, client *drive.Service) ([]*drive.File, error) {
	var files []*drive.File
	pageToken := ""
	for {
		call := client.Files.List().
			Context(ctx).
			Q(driveQuery).
			Fields(driveFields).
			PageSize(s.pageSize)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, err
		}
		files = append(files, resp.Files...)

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return files, nil
		}
	}
}

// hasChanged reports whether the Drive copy is newer than the stored one.
func hasChanged(doc *domain.Document, modifiedTime string) bool {
	remote, err := time.Parse(time.RFC3339, modifiedTime)
	if err != nil {
		return true
	}
	return remote.After(doc.GoogleModifiedTime)
}

func (s *DriveService) syncFile(ctx context.Context, client *drive.Service, userID string, f *drive.File) error {
	existing, err := s.documentRepo.GetByGoogleFileID(ctx, f.Id)
	if err != nil && !repository.IsNotFound(err) {
		return err
	}
	if existing != nil && !hasChanged(existing, f.ModifiedTime) {
		return nil
	}

	data, mimeType, err := s.download(ctx, client, f)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	modified, _ := time.Parse(time.RFC3339, f.ModifiedTime)

	doc := existing
	if doc == nil {
		doc = &domain.Document{
			ID:           uuid.NewString(),
			UserID:       userID,
			GoogleFileID: f.Id,
		}
	}
	doc.Name = f.Name
	doc.MimeType = mimeType
	doc.FileSize = int64(len(data))
	doc.GoogleModifiedTime = modified
	doc.Status = domain.DocumentStatusPending
	doc.StorageKey = path.Join(s.documentPrefix, userID, doc.ID)

	if err := s.storage.Upload(ctx, doc.StorageKey, bytes.NewReader(data), int64(len(data)), mimeType); err != nil {
		return fmt.Errorf("storage upload failed: %w", err)
	}

	if existing == nil {
		return s.documentRepo.Create(ctx, doc)
	}
	return s.documentRepo.Update(ctx, doc)
}

// download fetches the file bytes. Google Docs are exported as plain text;
// everything else downloads as-is.
func (s *DriveService) download(ctx context.Context, client *drive.Service, f *drive.File) ([]byte, string, error) {
	if f.MimeType == MimeGoogleDoc {
		resp, err := client.Files.Export(f.Id, MimePlainText).Context(ctx).Download()
		if err != nil {
			return nil, "", err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, "", err
		}
		return data, MimeGoogleDoc, nil
	}

	resp, err := client.Files.Get(f.Id).Context(ctx).Download()
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, f.MimeType, nil
}
