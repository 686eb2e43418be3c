package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"

	"tubesb/internal/site"
)

// packerSignature marks a Dean Edwards style packed script.
const packerSignature = "eval(function(p,a,c,k,e,d)"

// unpackTimeout bounds the JavaScript evaluation of a packed script.
const unpackTimeout = 2 * time.Second

// ManifestFromScripts finds the manifest URL in the player page's inline
// scripts without a browser. Packed scripts are unpacked with goja first.
func ManifestFromScripts(doc *goquery.Document, profile site.Profile) (string, error) {
	re, err := regexp.Compile(profile.ManifestPattern)
	if err != nil {
		return "", Wrap(UnexpectedFailure, "compiling manifest pattern", err)
	}

	var source string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if strings.Contains(text, packerSignature) || strings.Contains(text, profile.ManifestExt) {
			source = text
			return false
		}
		return true
	})
	if source == "" {
		return "", Errorf(ScriptNotFound, MsgScriptNotFound)
	}

	if strings.Contains(source, packerSignature) {
		source, err = Unpack(source)
		if err != nil {
			return "", Wrap(ScriptNotFound, MsgScriptNotFound, err)
		}
	}

	m := re.FindStringSubmatch(source)
	if len(m) < 2 || m[1] == "" {
		return "", Errorf(ManifestRegexMismatch, MsgManifestNotInScript)
	}
	return m[1], nil
}

// Unpack runs a packed script with eval rebound to capture its argument and
// returns the unpacked source.
func Unpack(script string) (string, error) {
	vm := goja.New()
	timer := time.AfterFunc(unpackTimeout, func() {
		vm.Interrupt("unpack timeout")
	})
	defer timer.Stop()

	var unpacked string
	if err := vm.Set("__unpack", func(src string) { unpacked = src }); err != nil {
		return "", fmt.Errorf("binding unpack hook: %w", err)
	}

	rewritten := strings.Replace(script, packerSignature, "__unpack(function(p,a,c,k,e,d)", 1)
	_, err := vm.RunString(rewritten)
	if unpacked != "" {
		// The rest of the script usually touches the DOM and fails; the
		// payload has been captured by then.
		return unpacked, nil
	}
	if err != nil {
		return "", fmt.Errorf("evaluating packed script: %w", err)
	}
	return "", fmt.Errorf("packed script produced no output")
}
