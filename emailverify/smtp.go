package emailverify

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

// SMTPConfig carries the callout's tunables, sourced from pkg/config at the
// call site so this package stays free of env-var reads.
type SMTPConfig struct {
	Port           int
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	HELOHost       string
	MailFrom       string
	TryStartTLS    bool
	CatchallProbe  bool
}

// SMTPOutcome is one host's raw callout result before result-mapping.
type SMTPOutcome struct {
	Host     string
	Code     int
	Message  string
	CatchAll bool
	Err      error
}

// reply is one accumulated SMTP reply: possibly multiple "ddd-" continuation
// lines terminated by a final "ddd " line (spec.md §4.6).
type reply struct {
	code    int
	message string
}

// ProbeHosts races the RCPT callout against up to two MX hosts in parallel;
// the first 250 on RCPT wins (spec.md §4.6). Every other outcome is
// collected so the caller can apply result mapping even when no host
// accepts the candidate.
func ProbeHosts(ctx context.Context, hosts []MXHost, candidate string, cfg SMTPConfig) []SMTPOutcome {
	if len(hosts) > 2 {
		hosts = hosts[:2]
	}

	results := make(chan SMTPOutcome, len(hosts))
	for _, h := range hosts {
		go func(host MXHost) {
			results <- probeOne(ctx, host.Host, candidate, cfg)
		}(h)
	}

	outcomes := make([]SMTPOutcome, 0, len(hosts))
	for i := 0; i < len(hosts); i++ {
		select {
		case o := <-results:
			outcomes = append(outcomes, o)
			if o.Err == nil && o.Code == 250 {
				return outcomes
			}
		case <-ctx.Done():
			outcomes = append(outcomes, SMTPOutcome{Err: ctx.Err()})
			return outcomes
		}
	}
	return outcomes
}

func probeOne(ctx context.Context, host, candidate string, cfg SMTPConfig) SMTPOutcome {
	conn, err := dialWithTimeout(ctx, host, cfg.Port, cfg.ConnectTimeout)
	if err != nil {
		return SMTPOutcome{Host: host, Err: err}
	}
	defer conn.Close()

	tc := textproto.NewConn(conn)

	deadline := func() { conn.SetDeadline(time.Now().Add(cfg.CommandTimeout)) }

	deadline()
	greeting, err := readReply(tc.Reader)
	if err != nil {
		return SMTPOutcome{Host: host, Err: fmt.Errorf("greeting: %w", err)}
	}
	if greeting.code != 220 {
		return SMTPOutcome{Host: host, Code: greeting.code, Message: greeting.message}
	}

	heloHost := cfg.HELOHost
	if heloHost == "" {
		heloHost = "localhost"
	}

	deadline()
	ehloOK, ehloLines, err := sendCommand(tc, "EHLO "+heloHost)
	if err != nil {
		return SMTPOutcome{Host: host, Err: fmt.Errorf("ehlo: %w", err)}
	}
	if !ehloOK {
		deadline()
		if r, err := sendSimple(tc, "HELO "+heloHost); err != nil || r.code/100 != 2 {
			if err != nil {
				return SMTPOutcome{Host: host, Err: fmt.Errorf("helo: %w", err)}
			}
			return SMTPOutcome{Host: host, Code: r.code, Message: r.message}
		}
	}

	if cfg.TryStartTLS && ehloAdvertisesStartTLS(ehloLines) {
		deadline()
		if r, err := sendSimple(tc, "STARTTLS"); err == nil && r.code == 220 {
			tlsConn := tls.Client(conn, &tls.Config{
				ServerName:         host,
				InsecureSkipVerify: true,
			})
			if err := tlsConn.HandshakeContext(ctx); err == nil {
				conn = tlsConn
				tc = textproto.NewConn(conn)
				deadline()
				sendCommand(tc, "EHLO "+heloHost)
			}
		}
	}

	mailFrom := cfg.MailFrom
	if mailFrom == "" {
		mailFrom = "verify@localhost"
	}

	deadline()
	if r, err := sendSimple(tc, "MAIL FROM:<"+mailFrom+">"); err != nil || r.code/100 != 2 {
		if err != nil {
			return SMTPOutcome{Host: host, Err: fmt.Errorf("mail from: %w", err)}
		}
		return SMTPOutcome{Host: host, Code: r.code, Message: r.message}
	}

	deadline()
	rcpt, err := sendSimple(tc, "RCPT TO:<"+candidate+">")
	if err != nil {
		return SMTPOutcome{Host: host, Err: fmt.Errorf("rcpt to: %w", err)}
	}

	catchAll := false
	if cfg.CatchallProbe && rcpt.code == 250 {
		probeLocal := randomLocalPart()
		deadline()
		if probeReply, err := sendSimple(tc, "RCPT TO:<"+probeLocal+"@"+domainOf(candidate)+">"); err == nil && probeReply.code == 250 {
			catchAll = true
		}
	}

	deadline()
	sendSimple(tc, "QUIT")

	return SMTPOutcome{Host: host, Code: rcpt.code, Message: rcpt.message, CatchAll: catchAll}
}

func dialWithTimeout(ctx context.Context, host string, port int, timeout time.Duration) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	d := net.Dialer{}
	return d.DialContext(dialCtx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
}

// readReply accumulates multi-line "ddd-text" continuations until the
// terminating "ddd text" line (spec.md §4.6, §8 testable property).
func readReply(r *textproto.Reader) (reply, error) {
	var lines []string
	var code int
	for {
		line, err := r.ReadLine()
		if err != nil {
			return reply{}, err
		}
		if len(line) < 4 {
			return reply{}, fmt.Errorf("malformed SMTP reply line: %q", line)
		}
		c, err := strconv.Atoi(line[:3])
		if err != nil {
			return reply{}, fmt.Errorf("malformed SMTP reply code: %q", line)
		}
		code = c
		lines = append(lines, line[4:])
		if line[3] == ' ' {
			break
		}
		if line[3] != '-' {
			return reply{}, fmt.Errorf("malformed SMTP reply separator: %q", line)
		}
	}
	return reply{code: code, message: strings.Join(lines, "\n")}, nil
}

func sendSimple(tc *textproto.Conn, cmd string) (reply, error) {
	if _, err := tc.Writer.W.WriteString(cmd + "\r\n"); err != nil {
		return reply{}, err
	}
	if err := tc.Writer.W.Flush(); err != nil {
		return reply{}, err
	}
	return readReply(tc.Reader)
}

// sendCommand sends cmd and, for EHLO, also returns the advertised
// capability lines (used to detect STARTTLS support).
func sendCommand(tc *textproto.Conn, cmd string) (ok bool, capLines []string, err error) {
	if _, err := tc.Writer.W.WriteString(cmd + "\r\n"); err != nil {
		return false, nil, err
	}
	if err := tc.Writer.W.Flush(); err != nil {
		return false, nil, err
	}

	var lines []string
	var code int
	for {
		line, rerr := tc.Reader.ReadLine()
		if rerr != nil {
			return false, nil, rerr
		}
		if len(line) < 4 {
			return false, nil, fmt.Errorf("malformed EHLO reply line: %q", line)
		}
		c, aerr := strconv.Atoi(line[:3])
		if aerr != nil {
			return false, nil, fmt.Errorf("malformed EHLO reply code: %q", line)
		}
		code = c
		lines = append(lines, strings.ToUpper(line[4:]))
		if line[3] == ' ' {
			break
		}
	}
	return code/100 == 2, lines, nil
}

func ehloAdvertisesStartTLS(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) == "STARTTLS" {
			return true
		}
	}
	return false
}

func domainOf(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[i+1:]
	}
	return email
}

func randomLocalPart() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "verify-probe"
	}
	return hex.EncodeToString(buf)
}
