package providers

import (
	"go.uber.org/zap"

	"gov-auditor/providers/browser"
	"gov-auditor/providers/dou"
	"gov-auditor/providers/douhttp"
	"gov-auditor/providers/jusbrasil"
	"gov-auditor/providers/tjsp"
)

// Options sind die gemeinsamen Parameter aller Provider.
type Options struct {
	Terms    []string
	DOUBase  string
	TJSPBase string
	// Browser ist die Vorlage; jeder Browser-Provider bekommt eine eigene Session.
	Browser  browser.Options
	Prompter jusbrasil.Prompter
}

type constructor func(opts Options, logger *zap.Logger) Provider

var registry = map[string]constructor{
	"dou": func(o Options, l *zap.Logger) Provider {
		return dou.New(o.Terms, o.DOUBase, session(o.Browser, false, l), l)
	},
	"dou_http": func(o Options, l *zap.Logger) Provider {
		return douhttp.New(o.Terms, o.DOUBase, l)
	},
	"tjsp": func(o Options, l *zap.Logger) Provider {
		return tjsp.New(o.Terms, o.TJSPBase, session(o.Browser, false, l), l)
	},
	"jusbrasil": func(o Options, l *zap.Logger) Provider {
		return jusbrasil.New(o.Terms, "", session(o.Browser, true, l), o.Prompter, l)
	},
}

func session(tpl browser.Options, stealth bool, logger *zap.Logger) *browser.Session {
	tpl.Stealth = tpl.Stealth || stealth
	tpl.Logger = logger
	return browser.NewSession(tpl)
}

// Known meldet, ob name ein registrierter Provider ist.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// Build erstellt die Provider in der Reihenfolge von names. Unbekannte Namen werden
// übersprungen und als unknown zurückgegeben.
func Build(names []string, opts Options, logger *zap.Logger) (built []Provider, unknown []string) {
	seen := map[string]bool{}
	for _, name := range names {
		ctor, ok := registry[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		built = append(built, ctor(opts, logger))
	}
	return built, unknown
}
