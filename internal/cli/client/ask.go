package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AskRequest represents the ask API request.
type AskRequest struct {
	Question    string   `json:"question"`
	FileIDs     []string `json:"file_ids,omitempty"`
	FolderIDs   []string `json:"folder_ids,omitempty"`
	IncludeMail bool     `json:"include_mail,omitempty"`
}

// SourceResponse represents a cited source file.
type SourceResponse struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
}

// UsageResponse represents token usage for a request.
type UsageResponse struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// AskResponse represents the ask API response.
type AskResponse struct {
	Answer         string           `json:"answer"`
	Sources        []SourceResponse `json:"sources"`
	QueryClass     string           `json:"query_class"`
	ChampionFileID string           `json:"champion_file_id,omitempty"`
	Degradations   []string         `json:"degradations,omitempty"`
	Usage          UsageResponse    `json:"usage"`
	DurationMs     int              `json:"duration_ms"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		fileIDs     []string
		folderIDs   []string
		includeMail bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question against the corporate memory",
		Long: `Asks a natural-language question. The answer is synthesized from the
most relevant indexed passages, with source files cited.

Examples:
  # Ask across everything the key can read
  knowvex ask "What is our refund policy?"

  # Restrict to specific files or folders
  knowvex ask "Summarize the Q3 numbers" --file 7c9e6679-... --folder a1b2c3d4-...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(args[0], fileIDs, folderIDs, includeMail, outputJSON)
		},
	}

	cmd.Flags().StringSliceVar(&fileIDs, "file", nil, "Restrict to specific file IDs (repeatable)")
	cmd.Flags().StringSliceVar(&folderIDs, "folder", nil, "Restrict to specific folder IDs (repeatable)")
	cmd.Flags().BoolVar(&includeMail, "include-mail", false, "Include indexed mail in the search surface")

	return cmd
}

func runAsk(question string, fileIDs, folderIDs []string, includeMail, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := AskRequest{
		Question:    question,
		FileIDs:     fileIDs,
		FolderIDs:   folderIDs,
		IncludeMail: includeMail,
	}

	resp, err := api.Post("/ask", req)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	var askResp AskResponse
	if err := json.Unmarshal(resp.Data, &askResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(askResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(askResp.Answer)

	if len(askResp.Sources) > 0 {
		fmt.Printf("\nSources:\n")
		for _, src := range askResp.Sources {
			fmt.Printf("  - %s (%s)\n", src.Filename, src.FileID)
		}
	}

	if len(askResp.Degradations) > 0 {
		fmt.Printf("\nDegraded: %s\n", strings.Join(askResp.Degradations, ", "))
	}

	fmt.Printf("\n(%s, %d ms, %d in / %d out tokens)\n",
		askResp.QueryClass, askResp.DurationMs,
		askResp.Usage.InputTokens, askResp.Usage.OutputTokens)

	return nil
}
