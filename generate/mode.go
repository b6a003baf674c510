package generate

import (
	"errors"
	"fmt"
	"strings"
)

// Mode is one of the fixed prompt strategies. Templates use %[1]s for the
// question and %[2]s for the context.
type Mode struct {
	Name     string
	template string
}

func NewMode(name, template string) (m Mode, err error) {
	if !strings.Contains(template, "%[1]s") {
		return m, fmt.Errorf("generate: %s template must reference the question with %%[1]s", name)
	}
	m = Mode{Name: name, template: template}
	if strings.Contains(m.Prompt("hello", "world"), "%!") {
		return m, errors.New("generate: " + name + " template contains an invalid verb")
	}
	return m, nil
}

// UsesContext reports whether the template includes the context.
func (m Mode) UsesContext() bool {
	return strings.Contains(m.template, "%[2]s")
}

func (m Mode) Prompt(question, context string) string {
	if !m.UsesContext() {
		return fmt.Sprintf(m.template, question)
	}
	return fmt.Sprintf(m.template, question, context)
}

func (m Mode) String() string {
	return m.Name
}

var Knowledge = Mode{
	Name: "knowledge",
	template: `You are a helpful Math Professor AI assistant. Your goal is to provide a clear, step-by-step solution to the user's math question, based *only* on the provided context.
If the context does not contain the answer, state that the information is not available in the knowledge base. Do not make up answers.

Context from Knowledge Base:
%[2]s

User Question: %[1]s

Step-by-step Solution:`,
}

var Web = Mode{
	Name: "web",
	template: `You are an expert Math Professor AI assistant. Your goal is to provide a clear, step-by-step solution to the user's math question.
Use the provided web search results as a primary source of information, formulas, or methods. If the results provide a direct solution, explain it clearly.
If the results provide relevant concepts or formulas but not a full solution, use your own mathematical reasoning abilities to solve the problem step-by-step, referencing the search results where appropriate.
If the search results are irrelevant or insufficient even for guiding the solution, state that you could not find enough information online to solve the problem confidently. Do not make up answers if you lack the necessary information or steps.

Web Search Results:
%[2]s

User Question: %[1]s

Step-by-step Solution:`,
}

var NoAnswer = Mode{
	Name: "no-answer",
	template: `You are a helpful Math Professor AI assistant. You were unable to find a relevant answer to the user's question in your knowledge base or through web search.
Politely inform the user that you cannot provide an answer at this time.

User Question: %[1]s

Response:`,
}

var TopicClassification = Mode{
	Name: "topic-classification",
	template: `Is the following query primarily related to mathematics, logic puzzles, or math education? Answer only with 'yes' or 'no'.

Query: '%[1]s'

Answer:`,
}
