package launcher

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

var requestTemplate = template.Must(template.New("request").Parse(`[[ ## task ## ]]
{{.Query}}

[[ ## system_instructions ## ]]

**IMPORTANT**: Follow these exact steps:
1. Create and write your complete response to: {{.TempResponseFile}}
2. When completely finished, run this {{.Shell}} command to signal completion:
   {{.MoveCommand}}

Do not proceed to step 2 until your response is completely written to the temporary file.
`))

type requestPrompt struct {
	Query            string
	TempResponseFile string
	Shell            string
	MoveCommand      string
}

// renderRequest builds the request file handed to the chat. The completion
// step renames the temporary response with PowerShell on Windows and mv elsewhere.
func renderRequest(goos, query, tempResponse, finalResponse string) (string, error) {
	prompt := requestPrompt{
		Query:            query,
		TempResponseFile: tempResponse,
	}
	if goos == "windows" {
		prompt.Shell = "PowerShell"
		prompt.MoveCommand = "Move-Item -LiteralPath " + quotePowerShell(tempResponse) + " -Destination " + quotePowerShell(finalResponse)
	} else {
		prompt.Shell = "shell"
		prompt.MoveCommand = "mv " + quotePosix(tempResponse) + " " + quotePosix(finalResponse)
	}

	var buf bytes.Buffer
	if err := requestTemplate.Execute(&buf, prompt); err != nil {
		return "", errors.Wrap(err, "failed to render request")
	}
	return buf.String(), nil
}

func quotePosix(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func quotePowerShell(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
