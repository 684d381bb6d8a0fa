package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"citydesk/internal/core"
	"citydesk/internal/export"
	"citydesk/internal/form"
	"citydesk/pkg/domain"
)

const helpText = `commands:
  list                                  reload and show all cities
  show                                  show the form
  new                                   clear the form (create mode)
  edit <id>                             edit a listed city
  set nome <valor>                      set the city name
  add-comercio <tipo> <responsavel> <nome>
  rm-comercio <n>                       drop the n-th commerce from the form
  save                                  create or update the city in the form
  reset                                 discard the form and reload
  rm <id>                               delete a city
  export                                write the list to the export store
  metrics                               show operation counters for this session
  quit`

type shell struct {
	manager  *form.Manager
	exporter *export.Exporter
	metrics  *core.MetricsCollector
	in       *bufio.Scanner
	out      io.Writer
}

var errQuit = errors.New("quit")

func (s *shell) run(ctx context.Context) error {
	if err := s.manager.Load(ctx); err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
	fmt.Fprintln(s.out, `citydesk - "help" lists commands`)
	for {
		fmt.Fprint(s.out, s.prompt())
		if !s.in.Scan() {
			fmt.Fprintln(s.out)
			return s.in.Err()
		}
		err := s.exec(ctx, strings.Fields(s.in.Text()))
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (s *shell) prompt() string {
	state := s.manager.Form()
	if state.Mode() == form.ModeEdit {
		return fmt.Sprintf("citydesk[edit %d]> ", state.OriginalID())
	}
	return "citydesk[new]> "
}

func (s *shell) exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	switch cmd, rest := args[0], args[1:]; cmd {
	case "help", "?":
		fmt.Fprintln(s.out, helpText)
	case "quit", "exit":
		return errQuit
	case "list", "ls":
		if err := s.manager.Load(ctx); err != nil {
			return err
		}
		s.printCities()
	case "show":
		s.printForm()
	case "new", "reset":
		return s.reloadAfter(s.manager.Reset(ctx))
	case "edit":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		city, ok := s.findCity(id)
		if !ok {
			return fmt.Errorf("city %d is not in the list", id)
		}
		s.manager.StartEdit(city)
		s.printForm()
	case "set":
		if len(rest) < 2 || rest[0] != "nome" {
			return errors.New("usage: set nome <valor>")
		}
		name := strings.Join(rest[1:], " ")
		s.manager.UpdateDraft(func(d *domain.City) { d.Name = name })
	case "add-comercio":
		if len(rest) < 3 {
			return errors.New("usage: add-comercio <tipo> <responsavel> <nome>")
		}
		commerce := domain.Commerce{
			Type:        domain.ParseCommerceType(rest[0]),
			Responsible: rest[1],
			Name:        strings.Join(rest[2:], " "),
		}
		s.manager.UpdateDraft(func(d *domain.City) {
			commerce.CityID = d.ID
			d.Commerces = append(d.Commerces, commerce)
		})
	case "rm-comercio":
		n, err := parseIndex(rest)
		if err != nil {
			return err
		}
		var outOfRange bool
		s.manager.UpdateDraft(func(d *domain.City) {
			if n > len(d.Commerces) {
				outOfRange = true
				return
			}
			d.Commerces = append(d.Commerces[:n-1], d.Commerces[n:]...)
		})
		if outOfRange {
			return fmt.Errorf("no commerce %d in the form", n)
		}
	case "save":
		saved, err := s.manager.Submit(ctx)
		if err := s.reloadAfter(err); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "saved city %d\n", saved.ID)
	case "rm":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		removed, err := s.manager.Remove(ctx, id)
		if err := s.reloadAfter(err); err != nil {
			return err
		}
		if !removed {
			fmt.Fprintln(s.out, "kept")
		}
	case "export":
		result, err := s.exporter.Export(ctx, s.manager.Cities())
		if err != nil {
			return err
		}
		for _, artifact := range result.Artifacts {
			fmt.Fprintf(s.out, "wrote %s (%d rows, %d bytes)\n", artifact.Info.Key, artifact.Rows, artifact.Info.Size)
		}
	case "metrics":
		return s.printMetrics()
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

// reloadAfter downgrades a failed reload to a warning; the mutation itself
// went through.
func (s *shell) reloadAfter(err error) error {
	var reloadErr *form.ReloadError
	if errors.As(err, &reloadErr) {
		fmt.Fprintf(s.out, "warning: %v\n", reloadErr)
		return nil
	}
	return err
}

func (s *shell) findCity(id int64) (domain.City, bool) {
	for _, c := range s.manager.Cities() {
		if c.ID == id {
			return c, true
		}
	}
	return domain.City{}, false
}

func (s *shell) printCities() {
	cities := s.manager.Cities()
	if len(cities) == 0 {
		fmt.Fprintln(s.out, "no cities")
		return
	}
	t := newTable("ID", "NOME", "COMERCIOS")
	for _, c := range cities {
		t.Row(strconv.FormatInt(c.ID, 10), c.Name, strconv.Itoa(len(c.Commerces)))
	}
	fmt.Fprintln(s.out, t.Render())
}

// printMetrics lists every counter sample gathered from the session registry.
func (s *shell) printMetrics() error {
	if s.metrics == nil {
		return errors.New("metrics are not enabled")
	}
	families, err := s.metrics.Registry().Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	t := newTable("METRICA", "ROTULOS", "VALOR")
	rows := 0
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			counter := metric.GetCounter()
			if counter == nil {
				continue
			}
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, pair := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", pair.GetName(), pair.GetValue()))
			}
			t.Row(family.GetName(), strings.Join(labels, ","), strconv.FormatFloat(counter.GetValue(), 'f', -1, 64))
			rows++
		}
	}
	if rows == 0 {
		fmt.Fprintln(s.out, "no metrics recorded")
		return nil
	}
	fmt.Fprintln(s.out, t.Render())
	return nil
}

func (s *shell) printForm() {
	state := s.manager.Form()
	draft := state.Draft()
	fmt.Fprintf(s.out, "mode: %s\nnome: %s\n", state.Mode(), draft.Name)
	for i, c := range draft.Commerces {
		fmt.Fprintf(s.out, "  %d. %s (%s) - %s\n", i+1, c.Name, c.Type, c.Responsible)
	}
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New("expected a city id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

func parseIndex(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("expected a commerce number")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid commerce number %q", args[0])
	}
	return n, nil
}
