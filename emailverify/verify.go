package emailverify

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	emailverifier "github.com/AfterShip/email-verifier"
	"golang.org/x/net/idna"
)

// disposableProbeTimeout bounds the AfterShip/email-verifier disposable-
// domain lookup; a slow or unreachable disposable-domain list update must
// never stall the verification pipeline (mirrors the teacher's own
// goroutine+select fast path around the same library call).
const disposableProbeTimeout = 3 * time.Second

// Status is the terminal verification outcome of spec.md §4.6.
type Status string

const (
	StatusDeliverable   Status = "deliverable"
	StatusRisky         Status = "risky"
	StatusUndeliverable Status = "undeliverable"
)

// Mode records whether the verdict came from a live SMTP callout or a
// fallback that stripped the email (spec.md §4.9).
type Mode string

const (
	ModeSMTP     Mode = "smtp"
	ModeFallback Mode = "fallback"
)

// rolePrefixes per spec.md §4.6.
var rolePrefixes = map[string]bool{
	"admin": true, "administrator": true, "postmaster": true, "webmaster": true,
	"hostmaster": true, "abuse": true, "noreply": true, "no-reply": true,
	"support": true, "help": true, "sales": true, "info": true, "billing": true,
}

// disposableDomains is a small seed list; spec.md §4.6 calls this
// annotation-only, so it never changes the Status.
var disposableDomains = map[string]bool{
	"mailinator.com": true, "10minutemail.com": true, "guerrillamail.com": true,
	"tempmail.com": true, "yopmail.com": true, "trashmail.com": true,
}

var transientSMTPCodes = map[int]bool{421: true, 450: true, 451: true, 452: true}

// Result is the full annotated verification outcome.
type Result struct {
	Email        string
	Status       Status
	Mode         Mode
	CatchAll     bool
	IsRole       bool
	IsDisposable bool
	Reason       string
}

// Config bundles the SMTP callout tunables with the global fallback flag.
type Config struct {
	SMTP                  SMTPConfig
	FallbackOnSMTPBlocked bool
}

// Verify runs the full normalize -> syntax -> DNS -> SMTP -> catch-all
// pipeline against a single address (spec.md §4.6).
func Verify(ctx context.Context, resolver *net.Resolver, email string, cfg Config) Result {
	local, domain, err := normalize(email)
	if err != nil {
		return Result{Email: email, Status: StatusUndeliverable, Reason: err.Error()}
	}

	result := Result{
		Email:  local + "@" + domain,
		IsRole: rolePrefixes[strings.ToLower(local)],
	}
	result.IsDisposable = disposableDomains[strings.ToLower(domain)] || probeDisposable(ctx, result.Email)

	if err := checkSyntax(local, domain); err != nil {
		result.Status = StatusUndeliverable
		result.Reason = err.Error()
		return result
	}

	hosts, err := ResolveMailHosts(ctx, resolver, domain)
	if err != nil || len(hosts) == 0 {
		result.Status = StatusUndeliverable
		result.Reason = "no MX or A/AAAA records"
		return result
	}

	outcomes := ProbeHosts(ctx, hosts, result.Email, cfg.SMTP)
	return applyResultMapping(result, outcomes, cfg)
}

// applyResultMapping implements spec.md §4.6's result mapping plus the
// §4.9 global-block fallback.
func applyResultMapping(result Result, outcomes []SMTPOutcome, cfg Config) Result {
	result.Mode = ModeSMTP

	for _, o := range outcomes {
		if o.Err == nil && o.Code == 250 {
			result.Status = StatusDeliverable
			if o.CatchAll {
				result.CatchAll = true
				result.Status = StatusRisky
				result.Reason = "catch-all-domain"
			}
			return result
		}
	}

	if allBlocked(outcomes) {
		if cfg.FallbackOnSMTPBlocked {
			result.Mode = ModeFallback
			result.Status = StatusRisky
			result.Reason = "smtp blocked globally, emails stripped by caller"
			return result
		}
		result.Status = StatusRisky
		result.Reason = "smtp blocked globally"
		return result
	}

	for _, o := range outcomes {
		if o.Err != nil {
			result.Status = StatusRisky
			result.Reason = "smtp timeout or transient connect failure"
			return result
		}
		if transientSMTPCodes[o.Code] {
			result.Status = StatusRisky
			result.Reason = fmt.Sprintf("smtp transient code %d", o.Code)
			return result
		}
	}

	result.Status = StatusUndeliverable
	if len(outcomes) > 0 {
		result.Reason = fmt.Sprintf("smtp terminal code %d", outcomes[0].Code)
	} else {
		result.Reason = "no smtp outcome"
	}
	return result
}

func allBlocked(outcomes []SMTPOutcome) bool {
	if len(outcomes) == 0 {
		return false
	}
	for _, o := range outcomes {
		if o.Err == nil {
			return false
		}
		msg := strings.ToLower(o.Err.Error())
		blocked := strings.Contains(msg, "connect") || strings.Contains(msg, "refused") ||
			strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded")
		if !blocked {
			return false
		}
	}
	return true
}

// normalize trims the address, splits on the last '@', lowercases and
// IDN-converts the domain to ASCII (spec.md §4.6).
func normalize(raw string) (local, domain string, err error) {
	trimmed := strings.TrimSpace(raw)
	at := strings.LastIndex(trimmed, "@")
	if at <= 0 || at == len(trimmed)-1 {
		return "", "", fmt.Errorf("malformed address: missing local or domain part")
	}

	local = trimmed[:at]
	rawDomain := strings.ToLower(trimmed[at+1:])

	ascii, err := idna.Lookup.ToASCII(rawDomain)
	if err != nil {
		return "", "", fmt.Errorf("idna conversion failed for %q: %w", rawDomain, err)
	}
	return local, ascii, nil
}

var dotAtomLocalPart = func(local string) bool {
	if local == "" {
		return false
	}
	for _, r := range local {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("!#$%&'*+-/=?^_`{|}~.", r):
		default:
			return false
		}
	}
	return !strings.HasPrefix(local, ".") && !strings.HasSuffix(local, ".") && !strings.Contains(local, "..")
}

// checkSyntax enforces spec.md §4.6's length and shape rules beyond plain
// RFC parsing: total <=254, local 1..64, each domain label 1..63, domain
// of the form (label.)+TLD with TLD length >= 2.
func checkSyntax(local, domain string) error {
	if len(local)+1+len(domain) > 254 {
		return fmt.Errorf("address exceeds 254 characters")
	}
	if len(local) < 1 || len(local) > 64 {
		return fmt.Errorf("local part must be 1..64 characters")
	}
	if !dotAtomLocalPart(local) {
		return fmt.Errorf("local part is not a valid dot-atom")
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return fmt.Errorf("domain must have at least one label and a TLD")
	}
	for _, label := range labels {
		if len(label) < 1 || len(label) > 63 {
			return fmt.Errorf("domain label %q must be 1..63 characters", label)
		}
	}
	tld := labels[len(labels)-1]
	if len(tld) < 2 {
		return fmt.Errorf("TLD %q too short", tld)
	}
	return nil
}

// probeDisposable asks AfterShip/email-verifier whether email's domain is a
// known disposable-mail provider, beyond the small seed list above. Run in
// a goroutine with its own timeout so a slow lookup never blocks the
// pipeline; any error or timeout is treated as "not disposable" since
// spec.md §4.6 marks this annotation-only, never a reason to fail a job.
func probeDisposable(ctx context.Context, email string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, disposableProbeTimeout)
	defer cancel()

	ch := make(chan bool, 1)
	go func() {
		defer func() { _ = recover() }()
		res, err := emailverifier.NewVerifier().Verify(email)
		if err != nil || res == nil {
			ch <- false
			return
		}
		ch <- res.Disposable
	}()

	select {
	case <-probeCtx.Done():
		return false
	case disposable := <-ch:
		return disposable
	}
}

// DefaultSMTPConfig builds an SMTPConfig from timeout durations expressed
// in milliseconds, matching pkg/config's *_MS fields.
func DefaultSMTPConfig(port, connectTimeoutMS, commandTimeoutMS int, heloHost, mailFrom string, tryStartTLS, catchallProbe bool) SMTPConfig {
	return SMTPConfig{
		Port:           port,
		ConnectTimeout: time.Duration(connectTimeoutMS) * time.Millisecond,
		CommandTimeout: time.Duration(commandTimeoutMS) * time.Millisecond,
		HELOHost:       heloHost,
		MailFrom:       mailFrom,
		TryStartTLS:    tryStartTLS,
		CatchallProbe:  catchallProbe,
	}
}
