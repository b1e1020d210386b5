package main

import (
	"context"
	"fmt"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/amp-statemachine/cli"
	"github.com/amp-labs/amp-statemachine/definitions"
	"github.com/amp-labs/amp-statemachine/shutdown"
	"github.com/amp-labs/amp-statemachine/statemachine"
	"github.com/amp-labs/amp-statemachine/workflow"
)

type docStep struct {
	event   workflow.Event
	payload string
}

func (d *demo) workflow(ctx context.Context) error {
	d.banner("Document Workflow")

	def, err := d.checkDefinition(definitions.Workflow)
	if err != nil {
		return err
	}

	if d.cfg.Mode == modeInteractive {
		return d.workflowInteractive(ctx, def)
	}

	first, err := d.document(ctx, "Chetan Soni", []docStep{
		{workflow.EventEdit, "This is the initial content of the document."},
		{workflow.EventEdit, "Updated content with more details."},
		{workflow.EventSubmit, ""},
		{workflow.EventEdit, "Cannot edit now"},
		{workflow.EventApprove, ""},
		{workflow.EventPublish, ""},
		{workflow.EventEdit, "Cannot edit published"},
	})
	if err != nil {
		return err
	}

	d.divider()

	if _, err := d.document(ctx, "Senorita ji", []docStep{
		{workflow.EventEdit, "Initial draft content"},
		{workflow.EventSubmit, ""},
		{workflow.EventReject, "Need more details"},
		{workflow.EventEdit, "Update with detailed content."},
		{workflow.EventSubmit, ""},
		{workflow.EventApprove, ""},
		{workflow.EventPublish, ""},
	}); err != nil {
		return err
	}

	d.divider()

	if err := d.reviewQueue(ctx, def); err != nil {
		return err
	}

	return d.diagram(def, visited(workflow.StateDraft, first.History()))
}

func (d *demo) document(ctx context.Context, author string, steps []docStep) (*workflow.Document, error) {
	doc, err := workflow.New(author)
	if err != nil {
		return nil, err
	}

	d.printf("📄 New document created by %s\n", doc.Author())

	for _, step := range steps {
		res, err := fire(ctx, doc, step)
		if err = narrate(d, res, err); err != nil {
			return nil, err
		}
	}

	d.printf("📑 %s: %s after %d revisions, content %q\n",
		doc.Author(), display(doc.Status()), doc.Revisions(), doc.Content())

	return doc, nil
}

func fire(ctx context.Context, doc *workflow.Document, step docStep) (workflow.Result, error) {
	switch step.event {
	case workflow.EventEdit:
		return doc.Edit(ctx, step.payload)
	case workflow.EventSubmit:
		return doc.Submit(ctx)
	case workflow.EventApprove:
		return doc.Approve(ctx)
	case workflow.EventReject:
		return doc.Reject(ctx, step.payload)
	default:
		return doc.Publish(ctx)
	}
}

// reviewQueue feeds one document from a serial queue: every step is
// submitted up front and applied in order by the queue's single worker.
func (d *demo) reviewQueue(ctx context.Context, def *statemachine.Definition) error {
	machine, err := statemachine.Build[workflow.State, workflow.Event](def, workflow.Registry(),
		workflow.Record{Author: "review bot"})
	if err != nil {
		return err
	}

	machine.SetName("review-queue")

	queue := statemachine.NewSerial(machine)
	shutdown.BeforeShutdown("review-queue", func(context.Context) { queue.Stop() })

	steps := []docStep{
		{workflow.EventEdit, "Release notes for 2.0"},
		{workflow.EventPublish, ""},
		{workflow.EventSubmit, ""},
		{workflow.EventApprove, ""},
		{workflow.EventPublish, ""},
	}

	tasks := make([]pond.ResultTask[statemachine.FireResult[workflow.State, workflow.Event]], 0, len(steps))
	for _, step := range steps {
		var payload any
		if step.payload != "" {
			payload = step.payload
		}

		tasks = append(tasks, queue.Submit(ctx, step.event, payload))
	}

	d.printf("📬 Queued %d events for %s\n", len(steps), machine.Name())

	for _, task := range tasks {
		out, err := task.Wait()
		if err != nil {
			return err
		}

		if err := narrate(d, out.Result, out.Err); err != nil {
			return err
		}
	}

	state, err := queue.CurrentState()
	if err != nil {
		return err
	}

	d.printf("📑 Queue drained, document is %s\n", display(state))

	return nil
}

const (
	actionEdit    = "Edit"
	actionSubmit  = "Submit"
	actionApprove = "Approve"
	actionReject  = "Reject"
	actionPublish = "Publish"
)

func (d *demo) workflowInteractive(ctx context.Context, def *statemachine.Definition) error {
	author, err := cli.PromptString("Author", nil)
	if err != nil {
		return ignoreInterrupt(err)
	}

	doc, err := workflow.New(author)
	if err != nil {
		return err
	}

	for ctx.Err() == nil && !doc.IsFinal() {
		d.printf("Status: %s, permitted: %v\n", display(doc.Status()), doc.Permitted(ctx))

		choice, err := cli.Select("What next?",
			actionEdit, actionSubmit, actionApprove, actionReject, actionPublish, actionQuit)
		if err != nil {
			return ignoreInterrupt(err)
		}

		step, err := promptStep(choice)
		if err != nil {
			return ignoreInterrupt(err)
		}

		if choice == actionQuit {
			break
		}

		res, err := fire(ctx, doc, step)
		if err = narrate(d, res, err); err != nil {
			return err
		}
	}

	if doc.IsFinal() {
		d.printf("🚀 %s's document is published\n", doc.Author())
	}

	return d.diagram(def, visited(workflow.StateDraft, doc.History()))
}

func promptStep(choice string) (docStep, error) {
	switch choice {
	case actionEdit:
		content, err := cli.PromptString("Content", nil)

		return docStep{event: workflow.EventEdit, payload: content}, err
	case actionSubmit:
		return docStep{event: workflow.EventSubmit}, nil
	case actionApprove:
		return docStep{event: workflow.EventApprove}, nil
	case actionReject:
		reason, err := cli.PromptString("Reason", nil)

		return docStep{event: workflow.EventReject, payload: reason}, err
	case actionPublish:
		return docStep{event: workflow.EventPublish}, nil
	case actionQuit:
		return docStep{}, nil
	default:
		return docStep{}, fmt.Errorf("unknown action %q", choice) //nolint:err113
	}
}
