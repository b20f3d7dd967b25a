package samplebundle

import (
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"onlab_backend/app/catalog"
	"onlab_backend/app/core"
)

// NewSampleMail tells the lab that a sample is on its way. The label is attached when given.
func NewSampleMail(sample *Sample, cat *catalog.Catalog, to []string, label []byte) core.Mail {
	rows := [][2]string{
		{"מזהה דגימה", sample.InternalId},
		{"פתוגן", sample.Pathogen},
		{"גידול", sample.Crop},
		{"אזור", sample.Region},
		{"יישוב", sample.Municipality},
		{"דוגם", sample.CollectorName},
		{"עדיפות", sample.Priority},
		{"סטטוס", cat.StatusLabel(string(sample.Status))},
	}

	body := strings.Builder{}
	body.WriteString(`<div dir="rtl"><h3>דגימה חדשה נשלחה למעבדה</h3><table>`)
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		fmt.Fprintf(&body, "<tr><td><b>%s</b></td><td>%s</td></tr>", html.EscapeString(row[0]), html.EscapeString(row[1]))
	}
	body.WriteString("</table></div>")

	mail := core.Mail{
		To:      to,
		Subject: fmt.Sprintf("%s: דגימה חדשה %s", cat.AppName, sample.InternalId),
		Body:    body.String(),
	}
	if len(label) > 0 {
		mail.Attachments = []core.Attachment{{Name: LabelFilename(sample), Data: label}}
	}
	return mail
}

func notifyLab(mailer core.Mailer, sample Sample, cat *catalog.Catalog, to []string, fontPath string) {
	label, err := RenderLabel(&sample, fontPath)
	if err != nil {
		core.Logger.Warn("rendering label for mail failed", zap.String("internal_id", sample.InternalId), zap.Error(err))
	}
	if err := mailer.Send(NewSampleMail(&sample, cat, to, label)); err != nil {
		core.Logger.Warn("notifying lab failed", zap.String("internal_id", sample.InternalId), zap.String("lab", sample.Lab), zap.Error(err))
	}
}
