package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// PassageResponse represents a retrieved passage.
type PassageResponse struct {
	ChunkID     string  `json:"chunk_id"`
	FileID      string  `json:"file_id"`
	Filename    string  `json:"filename"`
	ChunkIndex  int     `json:"chunk_index"`
	Content     string  `json:"content"`
	RRFScore    float64 `json:"rrf_score"`
	RerankScore float64 `json:"rerank_score,omitempty"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Passages       []PassageResponse `json:"passages"`
	QueryClass     string            `json:"query_class"`
	ChampionFileID string            `json:"champion_file_id,omitempty"`
	Degradations   []string          `json:"degradations,omitempty"`
	DurationMs     int               `json:"duration_ms"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		fileIDs     []string
		folderIDs   []string
		includeMail bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Retrieve passages without answer synthesis",
		Long:  "Runs the retrieval pipeline and prints the reranked passages directly.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSearch(args[0], fileIDs, folderIDs, includeMail, outputJSON)
		},
	}

	cmd.Flags().StringSliceVar(&fileIDs, "file", nil, "Restrict to specific file IDs (repeatable)")
	cmd.Flags().StringSliceVar(&folderIDs, "folder", nil, "Restrict to specific folder IDs (repeatable)")
	cmd.Flags().BoolVar(&includeMail, "include-mail", false, "Include indexed mail in the search surface")

	return cmd
}

func runSearch(query string, fileIDs, folderIDs []string, includeMail, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := AskRequest{
		Question:    query,
		FileIDs:     fileIDs,
		FolderIDs:   folderIDs,
		IncludeMail: includeMail,
	}

	resp, err := api.Post("/search", req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(searchResp.Passages) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d passages (%s):\n\n", len(searchResp.Passages), searchResp.QueryClass)
	for i, p := range searchResp.Passages {
		score := p.RerankScore
		if score == 0 {
			score = p.RRFScore
		}
		fmt.Printf("%d. %s #%d (%.4f)\n", i+1, p.Filename, p.ChunkIndex, score)
		content := p.Content
		if len(content) > 200 {
			content = content[:197] + "..."
		}
		fmt.Printf("   %s\n", content)
		fmt.Printf("   ID: %s\n", p.ChunkID)
		if i < len(searchResp.Passages)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	if searchResp.ChampionFileID != "" {
		fmt.Printf("\nChampion file: %s\n", searchResp.ChampionFileID)
	}
	if len(searchResp.Degradations) > 0 {
		fmt.Printf("Degraded: %s\n", strings.Join(searchResp.Degradations, ", "))
	}

	return nil
}
