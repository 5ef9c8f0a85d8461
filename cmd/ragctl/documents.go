package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"portfolio-rag/internal/app"
	"portfolio-rag/internal/bootstrap"
	"portfolio-rag/internal/model"
	"portfolio-rag/internal/pkg/pdfextract"
)

var (
	ingestType         string
	ingestID           string
	ingestTitle        string
	ingestSource       string
	ingestYears        int
	ingestProject      string
	ingestTechnologies []string
	ingestSkills       []string
	listJSON           bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Chunk, embed and store a text, markdown or PDF file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		text, err := readDocument(path)
		if err != nil {
			return err
		}
		title := ingestTitle
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		source := ingestSource
		if source == "" {
			source = filepath.Base(path)
		}

		return withApp(cmd.Context(), func(a *bootstrap.App) error {
			res, err := a.Ingest.Ingest(cmd.Context(), app.IngestInput{
				ID:              ingestID,
				Title:           title,
				Text:            text,
				Type:            ingestType,
				Source:          source,
				YearsExperience: ingestYears,
				ProjectName:     ingestProject,
				Technologies:    ingestTechnologies,
				Skills:          ingestSkills,
			})
			if err != nil {
				if written, ok := app.IsPartialIngestion(err); ok {
					fmt.Fprintf(cmd.ErrOrStderr(), "%d chunks were stored before the failure; re-run to replace them\n", written)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ingested %s (%d chunks)\n", res.DocumentID, res.ChunkCount)
			return nil
		})
	},
}

var ingestCVCmd = &cobra.Command{
	Use:   "ingest-cv <file.yaml|file.json>",
	Short: "Ingest structured CV data as the cv-main document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cv, err := loadCV(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *bootstrap.App) error {
			res, err := a.Ingest.IngestCV(cmd.Context(), *cv)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ingested %s (%d chunks)\n", res.DocumentID, res.ChunkCount)
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *bootstrap.App) error {
			docs, err := a.Ingest.ListDocuments(cmd.Context())
			if err != nil {
				return err
			}
			if listJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(docs)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tCHUNKS\tUPDATED\tTITLE")
			for _, d := range docs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", d.ID, d.Type, d.ChunkCount, d.UpdatedAt.Format("2006-01-02 15:04"), d.Title)
			}
			return w.Flush()
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete a document and all of its chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *bootstrap.App) error {
			if err := a.Ingest.DeleteDocument(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		})
	},
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestType, "type", "t", "", "document type: "+documentTypeList())
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "document id; re-using an id replaces the document")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "document title (default: file name)")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "document source (default: file name)")
	ingestCmd.Flags().IntVar(&ingestYears, "years", 0, "years of experience attached to every chunk")
	ingestCmd.Flags().StringVar(&ingestProject, "project", "", "project name attached to every chunk")
	ingestCmd.Flags().StringSliceVar(&ingestTechnologies, "tech", nil, "technology vocabulary, comma separated")
	ingestCmd.Flags().StringSliceVar(&ingestSkills, "skill", nil, "skill vocabulary, comma separated")
	_ = ingestCmd.MarkFlagRequired("type")

	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
}

func documentTypeList() string {
	names := make([]string, 0, len(model.DocumentTypes))
	for _, t := range model.DocumentTypes {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func readDocument(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return pdfextract.ExtractText(f, 0)
	}
	b, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%s is not valid UTF-8 text", path)
	}
	return string(b), nil
}

// loadCV decodes .json files with the API's camelCase keys and everything
// else as YAML with snake_case keys.
func loadCV(path string) (*model.CVData, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cv model.CVData
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(b, &cv)
	} else {
		err = yaml.Unmarshal(b, &cv)
	}
	if err != nil {
		return nil, fmt.Errorf("decode cv %s: %w", path, err)
	}
	if strings.TrimSpace(cv.PersonalInfo.Name) == "" {
		return nil, errors.New("cv personal info name is required")
	}
	return &cv, nil
}
