package client

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// DownloadURLResponse represents the download URL API response.
type DownloadURLResponse struct {
	DownloadURL string `json:"download_url"`
}

// InitUploadRequest represents the init upload API request.
type InitUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	FolderID    string `json:"folder_id,omitempty"`
}

// InitUploadResponse represents the init upload API response.
type InitUploadResponse struct {
	FileID     string `json:"file_id"`
	StorageKey string `json:"storage_key"`
	UploadURL  string `json:"upload_url"`
}

// CompleteUploadRequest represents the complete upload API request.
type CompleteUploadRequest struct {
	FileID      string `json:"file_id"`
	StorageKey  string `json:"storage_key"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SHA256      string `json:"sha256"`
	FolderID    string `json:"folder_id,omitempty"`
}

// FileResponse represents the file API response.
type FileResponse struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	FolderID  string `json:"folder_id,omitempty"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	SHA256    string `json:"sha256"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// FileListResponse represents the file list API response.
type FileListResponse struct {
	Items   []FileResponse `json:"items"`
	Cursor  string         `json:"cursor,omitempty"`
	HasMore bool           `json:"has_more"`
}

// FileCmd creates the file command group.
func FileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: "File management commands",
		Long:  "Commands for uploading, listing, and downloading indexed files.",
	}

	cmd.AddCommand(FileAddCmd())
	cmd.AddCommand(FileGetCmd())
	cmd.AddCommand(FileDownloadCmd())
	cmd.AddCommand(FileListCmd())
	cmd.AddCommand(FileReindexCmd())
	cmd.AddCommand(FileDeleteCmd())

	return cmd
}

// FileAddCmd creates the file add command.
func FileAddCmd() *cobra.Command {
	var folderID string

	cmd := &cobra.Command{
		Use:   "add <filepath>",
		Short: "Upload a file for indexing",
		Long: `Upload a file to the corporate memory. The file is stored, chunked,
embedded, and becomes searchable once indexing completes.

Examples:
  # Upload a document
  knowvex file add handbook.pdf

  # Upload into a folder
  knowvex file add q3-report.docx --folder 7c9e6679-...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runFileAdd(args[0], folderID, outputJSON)
		},
	}

	cmd.Flags().StringVar(&folderID, "folder", "", "Folder ID to place the file in")

	return cmd
}

func runFileAdd(filePath, folderID string, outputJSON bool) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	filename := filepath.Base(filePath)

	contentType := mime.TypeByExtension(filepath.Ext(filePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return fmt.Errorf("failed to calculate hash: %w", err)
	}
	sha256Hash := hex.EncodeToString(hash.Sum(nil))

	if _, err := file.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to reset file: %w", err)
	}

	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	initReq := InitUploadRequest{
		Filename:    filename,
		ContentType: contentType,
		FolderID:    folderID,
	}

	initResp, err := api.Post("/files/init", initReq)
	if err != nil {
		return fmt.Errorf("failed to init upload: %w", err)
	}

	var uploadInfo InitUploadResponse
	if err := json.Unmarshal(initResp.Data, &uploadInfo); err != nil {
		return fmt.Errorf("failed to parse init response: %w", err)
	}

	if err := api.UploadReader(uploadInfo.UploadURL, file, stat.Size(), contentType); err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	completeReq := CompleteUploadRequest{
		FileID:      uploadInfo.FileID,
		StorageKey:  uploadInfo.StorageKey,
		Filename:    filename,
		ContentType: contentType,
		SHA256:      sha256Hash,
		FolderID:    folderID,
	}

	completeResp, err := api.Post("/files/complete", completeReq)
	if err != nil {
		return fmt.Errorf("failed to complete upload: %w", err)
	}

	var uploaded FileResponse
	if err := json.Unmarshal(completeResp.Data, &uploaded); err != nil {
		return fmt.Errorf("failed to parse complete response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(uploaded, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Uploaded file: %s\n", uploaded.ID)
		fmt.Printf("Filename: %s\n", uploaded.Filename)
		fmt.Printf("Status: %s\n", uploaded.Status)
		fmt.Println("Indexing runs in the background; the file becomes searchable once it is ready.")
	}

	return nil
}

// FileGetCmd creates the file get command.
func FileGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <file_id>",
		Short: "Show file metadata",
		Long:  "Shows metadata and indexing status for a file by its ID.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runFileGet(args[0], outputJSON)
		},
	}

	return cmd
}

func runFileGet(fileID string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get("/files/" + fileID)
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}

	var f FileResponse
	if err := json.Unmarshal(resp.Data, &f); err != nil {
		return fmt.Errorf("failed to parse file response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(f, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("ID: %s\n", f.ID)
		fmt.Printf("Filename: %s\n", f.Filename)
		fmt.Printf("MIME: %s\n", f.MimeType)
		fmt.Printf("Status: %s\n", f.Status)
		if f.FolderID != "" {
			fmt.Printf("Folder: %s\n", f.FolderID)
		}
		fmt.Printf("SHA256: %s\n", f.SHA256)
		fmt.Printf("Created: %s\n", f.CreatedAt)
	}

	return nil
}

// FileDownloadCmd creates the file download command.
func FileDownloadCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "download <file_id>",
		Short: "Download a file by ID",
		Long:  "Downloads the original file content via a presigned URL.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runFileDownload(args[0], outputPath, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "dest", "o", "", "Output file path (default: current directory with original filename)")

	return cmd
}

func runFileDownload(fileID, outputPath string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/files/%s/download", fileID))
	if err != nil {
		return fmt.Errorf("failed to get download URL: %w", err)
	}

	var downloadResp DownloadURLResponse
	if err := json.Unmarshal(resp.Data, &downloadResp); err != nil {
		return fmt.Errorf("failed to parse download URL response: %w", err)
	}

	if downloadResp.DownloadURL == "" {
		return fmt.Errorf("no download URL returned")
	}

	if outputPath == "" {
		outputPath = extractFilenameFromURL(downloadResp.DownloadURL)
		if outputPath == "" {
			outputPath = fileID
		}
	}

	if err := api.DownloadFile(downloadResp.DownloadURL, outputPath); err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}

	if outputJSON {
		result := map[string]interface{}{
			"success": true,
			"file_id": fileID,
			"path":    outputPath,
		}
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Downloaded file to %s\n", outputPath)
	}

	return nil
}

// FileListCmd creates the file list command.
func FileListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List files",
		Long:  "Lists files in the tenant with pagination.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runFileList(limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runFileList(limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/files?limit=%d", limit)
	if cursor != "" {
		path += "&cursor=" + cursor
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	var listResp FileListResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Items) == 0 {
		fmt.Println("No files found.")
		return nil
	}

	fmt.Printf("Found %d files:\n\n", len(listResp.Items))
	for i, f := range listResp.Items {
		fmt.Printf("%d. %s [%s]\n", i+1, f.Filename, f.Status)
		fmt.Printf("   MIME: %s\n", f.MimeType)
		if f.FolderID != "" {
			fmt.Printf("   Folder: %s\n", f.FolderID)
		}
		fmt.Printf("   ID: %s\n", f.ID)
		if i < len(listResp.Items)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	if listResp.HasMore && listResp.Cursor != "" {
		fmt.Printf("\n%s\n", strings.Repeat("-", 40))
		fmt.Printf("More results available. Use --cursor %s\n", listResp.Cursor)
	}

	return nil
}

// FileReindexCmd creates the file reindex command.
func FileReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex <file_id>",
		Short: "Queue a file for re-indexing",
		Long:  "Queues a file to be chunked and embedded again from the stored original.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFileReindex(args[0])
		},
	}

	return cmd
}

func runFileReindex(fileID string) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	if _, err := api.Post(fmt.Sprintf("/files/%s/reindex", fileID), nil); err != nil {
		return fmt.Errorf("failed to queue reindex: %w", err)
	}

	fmt.Printf("File %s queued for re-indexing\n", fileID)
	return nil
}

// FileDeleteCmd creates the file delete command.
func FileDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <file_id>",
		Short: "Delete a file",
		Long:  "Deletes a file, its chunks, and the stored original.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFileDelete(args[0])
		},
	}

	return cmd
}

func runFileDelete(fileID string) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	if _, err := api.Delete("/files/" + fileID); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	fmt.Printf("File %s deleted\n", fileID)
	return nil
}

// extractFilenameFromURL extracts the filename from a URL path.
func extractFilenameFromURL(url string) string {
	path := url
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	return filepath.Base(path)
}
