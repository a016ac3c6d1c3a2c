// Package drive reads catalog spreadsheets from a Google Drive folder.
package drive

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

type Service struct {
	srv *drive.Service
}

func NewService(ctx context.Context, credentialsJSON string) (*Service, error) {
	config, err := google.JWTConfigFromJSON([]byte(credentialsJSON), drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account credentials: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive client: %w", err)
	}
	return &Service{srv: srv}, nil
}

type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	Size         int64  `json:"size,string,omitempty"`
}

func (s *Service) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	if folderID == "" {
		folderID = "root"
	}

	result, err := s.srv.Files.List().
		Context(ctx).
		Q(fmt.Sprintf("'%s' in parents and trashed=false", folderID)).
		Fields("files(id, name, mimeType, modifiedTime, size)").
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list files in %s: %w", folderID, err)
	}

	files := make([]*File, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, &File{
			ID:           f.Id,
			Name:         f.Name,
			MimeType:     f.MimeType,
			ModifiedTime: f.ModifiedTime,
			Size:         f.Size,
		})
	}
	return files, nil
}

func (s *Service) DownloadFile(ctx context.Context, fileID string, w io.Writer) error {
	resp, err := s.srv.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("unable to download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	_, err = io.Copy(w, resp.Body)
	return err
}

// LatestCatalog returns the most recently modified CSV or XLSX file of the
// folder.
func (s *Service) LatestCatalog(ctx context.Context, folderID string) (*File, error) {
	files, err := s.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}
	f := PickCatalog(files)
	if f == nil {
		return nil, fmt.Errorf("no csv or xlsx catalog in folder %s", folderID)
	}
	return f, nil
}

// PickCatalog keeps CSV and XLSX files and returns the newest one.
// ModifiedTime is RFC 3339, so it orders as a string.
func PickCatalog(files []*File) *File {
	var candidates []*File
	for _, f := range files {
		switch strings.ToLower(filepath.Ext(f.Name)) {
		case ".csv", ".xlsx":
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ModifiedTime > candidates[j].ModifiedTime
	})
	return candidates[0]
}
