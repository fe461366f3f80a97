package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// FolderResponse represents the folder API response.
type FolderResponse struct {
	ID        string `json:"id"`
	ParentID  string `json:"parent_id,omitempty"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// FolderListResponse represents the folder list API response.
type FolderListResponse struct {
	Items []FolderResponse `json:"items"`
}

// FolderCmd creates the folder command group.
func FolderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folder",
		Short: "Folder management commands",
		Long:  "Commands for organizing files into folders.",
	}

	cmd.AddCommand(FolderCreateCmd())
	cmd.AddCommand(FolderListCmd())
	cmd.AddCommand(FolderRenameCmd())
	cmd.AddCommand(FolderDeleteCmd())

	return cmd
}

// FolderCreateCmd creates the folder create command.
func FolderCreateCmd() *cobra.Command {
	var parentID string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runFolderCreate(args[0], parentID, outputJSON)
		},
	}

	cmd.Flags().StringVar(&parentID, "parent", "", "Parent folder ID for a nested folder")

	return cmd
}

func runFolderCreate(name, parentID string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	body := map[string]string{"name": name}
	if parentID != "" {
		body["parent_id"] = parentID
	}

	resp, err := api.Post("/folders", body)
	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	var folder FolderResponse
	if err := json.Unmarshal(resp.Data, &folder); err != nil {
		return fmt.Errorf("failed to parse folder response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(folder, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Folder created: %s (%s)\n", folder.Name, folder.ID)
	}

	return nil
}

// FolderListCmd creates the folder list command.
func FolderListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runFolderList(outputJSON)
		},
	}

	return cmd
}

func runFolderList(outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get("/folders")
	if err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}

	var listResp FolderListResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Items) == 0 {
		fmt.Println("No folders found.")
		return nil
	}

	fmt.Println("Folders:")
	for _, folder := range listResp.Items {
		fmt.Printf("  %s: %s\n", folder.ID, folder.Name)
	}

	return nil
}

// FolderRenameCmd creates the folder rename command.
func FolderRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <folder_id> <new_name>",
		Short: "Rename a folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFolderRename(args[0], args[1])
		},
	}

	return cmd
}

func runFolderRename(folderID, newName string) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	if _, err := api.Put("/folders/"+folderID, map[string]string{"name": newName}); err != nil {
		return fmt.Errorf("failed to rename folder: %w", err)
	}

	fmt.Printf("Folder %s renamed to %q\n", folderID, strings.TrimSpace(newName))
	return nil
}

// FolderDeleteCmd creates the folder delete command.
func FolderDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <folder_id>",
		Short: "Delete a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFolderDelete(args[0])
		},
	}

	return cmd
}

func runFolderDelete(folderID string) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	if _, err := api.Delete("/folders/" + folderID); err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	fmt.Printf("Folder %s deleted\n", folderID)
	return nil
}
