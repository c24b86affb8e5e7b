// Package prompt renders the deterministic natural-language prompts sent to
// the generation provider. Prompt wording is a product concern; the rest of
// the pipeline treats the rendered string as opaque.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/jungeol66104/firework-web-sub001/internal/domain"
)

type InterviewContext struct {
	CompanyName string
	JobTitle    string
	JobPosting  string
	Resume      string
	Comment     string
}

func FromInterview(interview *domain.Interview) InterviewContext {
	return InterviewContext{
		CompanyName: interview.CompanyName,
		JobTitle:    interview.JobTitle,
		JobPosting:  interview.JobPosting,
		Resume:      interview.Resume,
		Comment:     interview.Comment,
	}
}

type bulkQuestionsData struct {
	Interview  InterviewContext
	Categories []string
	Slots      int
	Comment    string
}

type bulkAnswersData struct {
	Interview InterviewContext
	Questions []slotQuestion
	Comment   string
}

type slotQuestion struct {
	Category string
	Index    int
	Question string
}

type singleSlotData struct {
	Interview InterviewContext
	Category  string
	Question  string
	Current   string
	Comment   string
	Revise    bool
}

var (
	bulkQuestionsTmpl = template.Must(template.New("bulk_questions").Parse(strings.TrimSpace(`
You are an interview coach preparing a candidate for a job interview.

Company: {{.Interview.CompanyName}}
Position: {{.Interview.JobTitle}}
Job posting:
{{.Interview.JobPosting}}

Candidate resume:
{{.Interview.Resume}}
{{if .Comment}}
Additional instructions from the candidate:
{{.Comment}}
{{end}}
Write interview questions the candidate is likely to face. Return a JSON object with exactly these keys: {{range $i, $c := .Categories}}{{if $i}}, {{end}}"{{$c}}"{{end}}. Each key maps to an array of exactly {{.Slots}} question strings in that category. Every question must be specific to this company, position and resume. Return only JSON.
`)))

	bulkAnswersTmpl = template.Must(template.New("bulk_answers").Parse(strings.TrimSpace(`
You are an interview coach writing model answers for a candidate.

Company: {{.Interview.CompanyName}}
Position: {{.Interview.JobTitle}}
Job posting:
{{.Interview.JobPosting}}

Candidate resume:
{{.Interview.Resume}}
{{if .Comment}}
Additional instructions from the candidate:
{{.Comment}}
{{end}}
Answer the following interview questions in the candidate's voice, grounded in the resume above:
{{range .Questions}}
[{{.Category}} #{{.Index}}] {{.Question}}{{end}}

Return a JSON object keyed by category name. Each key maps to an array of answer strings in the same order the questions were given for that category. Return only JSON.
`)))

	singleQuestionTmpl = template.Must(template.New("single_question").Parse(strings.TrimSpace(`
You are an interview coach preparing a candidate for a job interview.

Company: {{.Interview.CompanyName}}
Position: {{.Interview.JobTitle}}
Job posting:
{{.Interview.JobPosting}}

Candidate resume:
{{.Interview.Resume}}

Category: {{.Category}}
{{if .Revise}}Current question:
{{.Current}}

Revise the question above{{if .Comment}} following this instruction: {{.Comment}}{{end}}.{{else}}Write one new interview question for this category{{if .Comment}}, following this instruction: {{.Comment}}{{end}}. It must differ from: {{.Current}}{{end}}
Return a JSON object with a single key "question" holding the question string. Return only JSON.
`)))

	singleAnswerTmpl = template.Must(template.New("single_answer").Parse(strings.TrimSpace(`
You are an interview coach writing a model answer for a candidate.

Company: {{.Interview.CompanyName}}
Position: {{.Interview.JobTitle}}
Job posting:
{{.Interview.JobPosting}}

Candidate resume:
{{.Interview.Resume}}

Interview question ({{.Category}}):
{{.Question}}
{{if .Revise}}
Current answer:
{{.Current}}

Revise the answer above{{if .Comment}} following this instruction: {{.Comment}}{{end}}.{{else}}Write the answer in the candidate's voice{{if .Comment}}, following this instruction: {{.Comment}}{{end}}.{{end}}
Return a JSON object with a single key "answer" holding the answer string. Return only JSON.
`)))
)

func BulkQuestions(interview InterviewContext, comment string) (string, error) {
	return render(bulkQuestionsTmpl, bulkQuestionsData{
		Interview:  interview,
		Categories: domain.Categories,
		Slots:      domain.SlotsPerCategory,
		Comment:    strings.TrimSpace(comment),
	})
}

// BulkAnswers lists the selected questions slot by slot so the provider
// answers them in a stable order.
func BulkAnswers(
	interview InterviewContext,
	questions domain.QuestionBundle,
	slots []domain.TargetItem,
	comment string,
) (string, error) {
	selected := make([]slotQuestion, 0, len(slots))
	for _, slot := range slots {
		items, ok := questions[slot.Category]
		if !ok || slot.Index >= len(items) {
			return "", fmt.Errorf("no question at (%s, %d)", slot.Category, slot.Index)
		}
		selected = append(selected, slotQuestion{
			Category: slot.Category,
			Index:    slot.Index,
			Question: items[slot.Index],
		})
	}
	return render(bulkAnswersTmpl, bulkAnswersData{
		Interview: interview,
		Questions: selected,
		Comment:   strings.TrimSpace(comment),
	})
}

// SingleQuestion renders the edit (revise=true) or regenerate prompt for
// one question slot.
func SingleQuestion(interview InterviewContext, category, current, comment string, revise bool) (string, error) {
	return render(singleQuestionTmpl, singleSlotData{
		Interview: interview,
		Category:  category,
		Current:   current,
		Comment:   strings.TrimSpace(comment),
		Revise:    revise,
	})
}

// SingleAnswer renders the edit (revise=true) or regenerate prompt for one
// answer slot.
func SingleAnswer(interview InterviewContext, category, question, current, comment string, revise bool) (string, error) {
	return render(singleAnswerTmpl, singleSlotData{
		Interview: interview,
		Category:  category,
		Question:  question,
		Current:   current,
		Comment:   strings.TrimSpace(comment),
		Revise:    revise,
	})
}

func render(tmpl *template.Template, data any) (string, error) {
	buffer := bytes.NewBuffer(nil)
	if err := tmpl.Execute(buffer, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", tmpl.Name(), err)
	}
	return buffer.String(), nil
}
