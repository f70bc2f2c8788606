package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// GenkitInvoker routes invocations through Genkit. The backend is registered
// as a Genkit model so generation goes through Genkit's model pipeline
// (request validation, middleware, tracing).
type GenkitInvoker struct {
	g     *genkit.Genkit
	model ai.Model
}

// NewGenkitInvoker registers backend as the Genkit model "triage/<name>".
func NewGenkitInvoker(ctx context.Context, name string, backend Invoker) *GenkitInvoker {
	g := genkit.Init(ctx)

	model := genkit.DefineModel(
		g,
		"triage/"+name,
		&ai.ModelOptions{
			Label: fmt.Sprintf("Triage backend (%s)", name),
			Supports: &ai.ModelSupports{
				Multiturn:  true,
				SystemRole: true,
			},
		},
		func(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
			system, user := splitMessages(req.Messages)

			text, err := backend.Invoke(ctx, system, user)
			if err != nil {
				return nil, err
			}

			return &ai.ModelResponse{
				Request: req,
				Message: ai.NewModelTextMessage(text),
			}, nil
		},
	)

	return &GenkitInvoker{g: g, model: model}
}

// Invoke generates through the registered model with temperature 0.
func (i *GenkitInvoker) Invoke(ctx context.Context, system, user string) (string, error) {
	resp, err := genkit.Generate(ctx, i.g,
		ai.WithModel(i.model),
		ai.WithMessages(
			ai.NewSystemTextMessage(system),
			ai.NewUserTextMessage(user),
		),
		ai.WithConfig(&ai.GenerationCommonConfig{Temperature: 0}),
	)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// splitMessages joins system and user message text, in order.
func splitMessages(messages []*ai.Message) (system, user string) {
	var sys, usr []string
	for _, m := range messages {
		switch m.Role {
		case ai.RoleSystem:
			sys = append(sys, m.Text())
		case ai.RoleUser:
			usr = append(usr, m.Text())
		}
	}
	return strings.Join(sys, "\n"), strings.Join(usr, "\n")
}
