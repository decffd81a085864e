package main

import (
	"context"
	"errors"
	"io"
	"strings"

	goShop "github.com/MrEthical07/goShop"
	"github.com/MrEthical07/goShop/internal/output"
	"github.com/spf13/cobra"
)

type credentialFlags struct {
	email       string
	countryCode string
	phone       string
	password    string
}

func (f *credentialFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "email address")
	cmd.Flags().StringVar(&f.countryCode, "country-code", "", "phone country code, e.g. +91")
	cmd.Flags().StringVar(&f.phone, "phone", "", "phone number (selects the mobile channel)")
	cmd.Flags().StringVar(&f.password, "password", "", "password (prompted when omitted)")
}

func (f *credentialFlags) attempt(mode goShop.AuthMode) goShop.Attempt {
	channel := goShop.ChannelEmail
	if f.phone != "" {
		channel = goShop.ChannelMobile
	}
	return goShop.Attempt{
		Mode:        mode,
		Channel:     channel,
		Email:       f.email,
		CountryCode: f.countryCode,
		PhoneNumber: f.phone,
		Password:    f.password,
	}
}

func newSignInCmd(a *app) *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email or phone and password",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.authenticate(cmd, goShop.ModeSignIn, &creds)
		},
	}
	creds.bind(cmd)
	return cmd
}

func newSignUpCmd(a *app) *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and verify the one-time password",
		Long: `signup submits the credentials and, when the backend sends a one-time
password, prompts for it. Type "resend" at the prompt to request a new code
once the countdown has expired.`,
		Args: withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.authenticate(cmd, goShop.ModeSignUp, &creds)
		},
	}
	creds.bind(cmd)
	return cmd
}

func (a *app) authenticate(cmd *cobra.Command, mode goShop.AuthMode, creds *credentialFlags) error {
	ctx := cmd.Context()
	client, err := a.openClient(ctx, cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	flow, err := client.NewAuthFlow()
	if err != nil {
		return err
	}
	if flow.State() == goShop.StateAuthenticated {
		a.printer.Info("Already signed in as %s", displayName(client.Session()))
		return nil
	}

	if creds.password == "" {
		a.printer.Prompt("Password: ")
		pw, err := a.readLine()
		if err != nil {
			return usageError("password is required")
		}
		creds.password = pw
	}

	state, err := flow.Submit(ctx, creds.attempt(mode))
	if err != nil {
		return authError(mode, flow, err)
	}
	if state == goShop.StateOTPPending {
		if err := a.otpLoop(ctx, flow); err != nil {
			return err
		}
	}

	a.printer.Success("Signed in as %s", displayName(client.Session()))
	return nil
}

// otpLoop prompts until the code is accepted or input ends.
func (a *app) otpLoop(ctx context.Context, flow *goShop.AuthFlow) error {
	a.printer.Info("%s", flow.Message())
	for {
		ch, ok := flow.Challenge()
		if !ok {
			return &output.CLIError{Summary: "verification abandoned", ExitCode: output.ExitGeneral}
		}
		a.printer.Prompt("OTP [%s] (or \"resend\"): ", ch.Display())

		line, err := a.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return &output.CLIError{
					Summary:    "no OTP entered",
					Suggestion: "run signup again and enter the code sent to you",
					ExitCode:   output.ExitGeneral,
				}
			}
			return err
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "resend":
			if err := flow.ResendOTP(ctx); err != nil {
				if errors.Is(err, goShop.ErrThrottledResend) {
					a.printer.Warning("Resend available in %s", ch.Display())
					continue
				}
				a.printer.Error("%s", goShop.UserMessage(err, flow.Error()))
				continue
			}
			a.printer.Info("%s", flow.Message())
			continue
		}

		state, err := flow.VerifyOTP(ctx, line)
		if state == goShop.StateAuthenticated {
			if err != nil {
				a.printer.Warning("%s", flow.Error())
			}
			return nil
		}
		switch {
		case errors.Is(err, goShop.ErrInvalidAttempt):
			a.printer.Warning("Enter the code or \"resend\"")
		case errors.Is(err, goShop.ErrSessionPersist):
			return &output.CLIError{Summary: "verification failed", Detail: flow.Error(), ExitCode: output.ExitGeneral}
		default:
			a.printer.Error("%s", flow.Error())
		}
	}
}

func authError(mode goShop.AuthMode, flow *goShop.AuthFlow, err error) error {
	summary := "sign-in failed"
	if mode == goShop.ModeSignUp {
		summary = "sign-up failed"
	}
	code := output.ExitGeneral
	if errors.Is(err, goShop.ErrInvalidAttempt) {
		code = output.ExitUsageError
	}
	detail := flow.Error()
	if detail == "" {
		detail = err.Error()
	}
	return &output.CLIError{Summary: summary, Detail: detail, ExitCode: code}
}

func displayName(sess goShop.Session) string {
	if sess.User == nil {
		return "unknown user"
	}
	switch {
	case sess.User.Name != "":
		return sess.User.Name
	case sess.User.Email != "":
		return sess.User.Email
	default:
		return sess.User.ID
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session (the device id is kept)",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.openClient(ctx, cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			wasSignedIn := client.Session().Authenticated()
			if err := client.Logout(ctx); err != nil {
				return &output.CLIError{Summary: "logout failed", Detail: err.Error(), ExitCode: output.ExitGeneral}
			}
			if wasSignedIn {
				a.printer.Success("Logged out")
			} else {
				a.printer.Info("No active session")
			}
			return nil
		},
	}
}

type deviceView struct {
	DeviceID   string `json:"device_id"`
	DeviceType string `json:"device_type"`
}

func newDeviceView(id goShop.DeviceIdentity) deviceView {
	return deviceView{DeviceID: id.DeviceID, DeviceType: string(id.DeviceType)}
}

type whoamiView struct {
	User      *goShop.User `json:"user"`
	Subject   string       `json:"subject,omitempty"`
	ExpiresAt string       `json:"expires_at,omitempty"`
	Device    deviceView   `json:"device"`
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.openClient(ctx, cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			sess := client.Session()
			if !sess.Authenticated() {
				return &output.CLIError{
					Summary:    "not signed in",
					Suggestion: "run goshop signin",
					ExitCode:   output.ExitGeneral,
				}
			}

			view := whoamiView{User: sess.User, Subject: sess.Subject, Device: newDeviceView(client.DeviceIdentity(ctx))}
			if !sess.ExpiresAt.IsZero() {
				view.ExpiresAt = sess.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z")
			}
			if a.jsonOut {
				return a.writeJSON(cmd, view)
			}

			table := output.NewTable(cmd.OutOrStdout(), []string{"Field", "Value"}, a.quiet)
			table.AddRow("id", sess.User.ID)
			table.AddRow("name", sess.User.Name)
			table.AddRow("email", sess.User.Email)
			if view.ExpiresAt != "" {
				table.AddRow("token expires", view.ExpiresAt)
			}
			table.AddRow("device", view.Device.DeviceID)
			return table.Render()
		},
	}
}
