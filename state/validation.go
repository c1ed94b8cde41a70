package state

import (
	"fmt"
	"regexp"
	"slices"
)

var namePattern, _ = regexp.Compile("^[0-9a-z._-]+$")

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func ProtocolConfigValidator(cfg *ProtocolCfg) error {
	if cfg.Variant != VariantFlooding && cfg.Variant != VariantGlobal {
		return fmt.Errorf("unknown protocol variant %q", cfg.Variant)
	}
	if cfg.MaxPaths < 0 {
		return fmt.Errorf("max_paths must not be negative")
	}
	if cfg.SpfDelay < 0 || cfg.SpfDuration < 0 || cfg.RefreshInterval < 0 || cfg.MaxAge < 0 {
		return fmt.Errorf("protocol timers must not be negative")
	}
	if cfg.MaxAge != 0 && cfg.RefreshInterval == 0 {
		return fmt.Errorf("max_age requires refresh_interval to be set")
	}
	if cfg.MaxAge != 0 && cfg.MaxAge <= cfg.RefreshInterval {
		return fmt.Errorf("max_age (%s) must be larger than refresh_interval (%s)", cfg.MaxAge, cfg.RefreshInterval)
	}
	return nil
}

func TopologyValidator(cfg *TopologyCfg) error {
	err := ProtocolConfigValidator(&cfg.Protocol)
	if err != nil {
		return err
	}
	seen := make([]NodeId, 0, len(cfg.Routers))
	for _, r := range cfg.Routers {
		err := NameValidator(string(r.Id))
		if err != nil {
			return err
		}
		if slices.Contains(seen, r.Id) {
			return fmt.Errorf("duplicate router: %s", r.Id)
		}
		seen = append(seen, r.Id)
		for _, p := range r.Prefixes {
			if !p.IsValid() {
				return fmt.Errorf("router %s has an invalid prefix", r.Id)
			}
		}
	}

	rel := make([]Pair[NodeId, NodeId], 0)
	for _, l := range cfg.Links {
		if !cfg.IsRouter(l.A) {
			return fmt.Errorf("router %s not defined", l.A)
		}
		if !cfg.IsRouter(l.B) {
			return fmt.Errorf("router %s not defined", l.B)
		}
		if l.A == l.B {
			return fmt.Errorf("link from %s to itself", l.A)
		}
		if l.Delay < 0 {
			return fmt.Errorf("link %s, %s has a negative delay", l.A, l.B)
		}
		p := MakeSortedPair(l.A, l.B)
		if slices.Contains(rel, p) {
			return fmt.Errorf("duplicate link found: %s, %s", l.A, l.B)
		}
		rel = append(rel, p)
	}

	for _, ev := range cfg.Events {
		if ev.At < 0 {
			return fmt.Errorf("event %s scheduled at negative time", ev.Kind)
		}
		switch ev.Kind {
		case EventLinkDown, EventLinkUp, EventLinkCost:
			if cfg.FindLink(ev.A, ev.B) == nil {
				return fmt.Errorf("event %s refers to unknown link %s, %s", ev.Kind, ev.A, ev.B)
			}
		case EventDetach, EventAttach:
			if !cfg.IsRouter(ev.Node) {
				return fmt.Errorf("event %s refers to unknown router %s", ev.Kind, ev.Node)
			}
		default:
			return fmt.Errorf("unknown event kind %q", ev.Kind)
		}
	}
	return nil
}
