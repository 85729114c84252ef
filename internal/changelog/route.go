package changelog

import (
	"fmt"

	"github.com/akolanti/GoIngest/internal/domain/commonModels"
)

type Action int

const (
	ActionSkip Action = iota
	ActionIngest
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionIngest:
		return "ingest"
	case ActionDelete:
		return "delete"
	}
	return "skip"
}

// Route decides what an event asks for. Only the transition into ingesting
// starts a run, so a replayed or unrelated update never triggers a second one.
func Route(ev Event) (Action, commonModels.Document, error) {
	switch ev.Op {
	case OpCreate, OpRead:
		return ActionSkip, commonModels.Document{}, nil
	case OpUpdate:
		if ev.Before == nil || ev.After == nil {
			return ActionSkip, commonModels.Document{}, fmt.Errorf("%w: update needs before and after", ErrMalformedEvent)
		}
		if ev.After.Status != commonModels.StatusIngesting || ev.Before.Status == commonModels.StatusIngesting {
			return ActionSkip, *ev.After, nil
		}
		if err := validate(*ev.After); err != nil {
			return ActionSkip, *ev.After, err
		}
		return ActionIngest, *ev.After, nil
	case OpDelete:
		if ev.Before == nil {
			return ActionSkip, commonModels.Document{}, fmt.Errorf("%w: delete needs before", ErrMalformedEvent)
		}
		if err := validate(*ev.Before); err != nil {
			return ActionSkip, *ev.Before, err
		}
		return ActionDelete, *ev.Before, nil
	}
	return ActionSkip, commonModels.Document{}, fmt.Errorf("%w: unknown op %q", ErrMalformedEvent, ev.Op)
}

func validate(doc commonModels.Document) error {
	if doc.Id == "" || doc.KnowledgeId == "" {
		return fmt.Errorf("%w: document needs id and knowledge_id", ErrMalformedEvent)
	}
	return nil
}
