package csv

import (
	csvwriter "encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ledgerlift/erp-migrator/types"
)

type IOutcomeCsvClient interface {
	Export(summary types.RunSummary) (string, error)
}

type OutcomeCsvClient struct {
	WorkingFolderPath string
	Logger            *logrus.Logger
}

type OutcomeCsv struct {
	Header []string
	Rows   []*OutcomeCsvRow
}

func NewOutcomeCsvClient(workingFolderPath string, logger *logrus.Logger) *OutcomeCsvClient {
	return &OutcomeCsvClient{
		WorkingFolderPath: workingFolderPath,
		Logger:            logger,
	}
}

func (csv *OutcomeCsv) AddRow(row *OutcomeCsvRow) {
	csv.Rows = append(csv.Rows, row)
}

type OutcomeCsvRow struct {
	RunID         string
	Status        types.OutcomeStatus
	SourceDocType types.SourceDocType
	TargetDocType types.TargetDocType
	SourceKey     string
	TargetName    string
	ErrorMessage  string
}

// Export writes the failed and invalid outcomes of a run to
// outcomes_<target doctype>.csv and returns the file path.
func (csvClient *OutcomeCsvClient) Export(summary types.RunSummary) (string, error) {
	outcomeCsv := &OutcomeCsv{Header: []string{"Run ID", "Status", "Source DocType", "Target DocType", "Source Key", "Target Name", "Error"}}

	for _, outcome := range summary.Outcomes {
		if outcome.Status != types.OutcomeStatusFailed && outcome.Status != types.OutcomeStatusInvalid {
			continue
		}
		outcomeCsv.AddRow(&OutcomeCsvRow{
			RunID:         outcome.RunID,
			Status:        outcome.Status,
			SourceDocType: outcome.SourceDocType,
			TargetDocType: outcome.TargetDocType,
			SourceKey:     outcome.SourceKey,
			TargetName:    outcome.TargetName,
			ErrorMessage:  outcome.ErrorMessage,
		})
	}

	sort.Sort(ByStatusAndSourceKey(outcomeCsv.Rows))

	return csvClient.writeCsv(outcomeCsv, fileName(summary.TargetDocType))
}

func (csvClient *OutcomeCsvClient) writeCsv(outcomeCsv *OutcomeCsv, name string) (string, error) {
	csvData := [][]string{outcomeCsv.Header}
	for _, row := range outcomeCsv.Rows {
		csvData = append(csvData, []string{
			row.RunID,
			string(row.Status),
			string(row.SourceDocType),
			string(row.TargetDocType),
			row.SourceKey,
			row.TargetName,
			row.ErrorMessage,
		})
	}

	csvFilePath := filepath.Join(csvClient.WorkingFolderPath, name)
	csvFile, err := os.Create(csvFilePath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", csvFilePath, err)
	}
	defer csvFile.Close()

	csvWriter := csvwriter.NewWriter(csvFile)
	if err := csvWriter.WriteAll(csvData); err != nil {
		return "", fmt.Errorf("write %s: %w", csvFilePath, err)
	}
	csvClient.Logger.Infof("Outcomes written to %s", csvFilePath)
	return csvFilePath, nil
}

func fileName(targetDocType types.TargetDocType) string {
	slug := strings.ToLower(strings.ReplaceAll(string(targetDocType), " ", "_"))
	return fmt.Sprintf("outcomes_%s.csv", slug)
}

type ByStatusAndSourceKey []*OutcomeCsvRow

func (o ByStatusAndSourceKey) Len() int      { return len(o) }
func (o ByStatusAndSourceKey) Swap(i, j int) { o[i], o[j] = o[j], o[i] }
func (o ByStatusAndSourceKey) Less(i, j int) bool {
	if o[i].Status != o[j].Status {
		return o[i].Status < o[j].Status
	}

	return o[i].SourceKey < o[j].SourceKey
}
