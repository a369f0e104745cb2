package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/agentgate/internal/config"
)

func pairCmd() *cobra.Command {
	var gatewayURL string

	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Redeem a pairing code against a running gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPair(gatewayURL)
		},
	}
	cmd.Flags().StringVar(&gatewayURL, "url", "", "gateway base URL (default derived from config.json)")
	return cmd
}

func runPair(gatewayURL string) error {
	if gatewayURL == "" {
		cfg, err := config.Load(resolveConfigPath())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		gatewayURL = fmt.Sprintf("http://%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
	}

	var code string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Pairing code").
				Description("Enter the 6-digit code shown by the gateway or its desktop/mobile client").
				Value(&code),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("pairing prompt cancelled: %w", err)
	}

	var confirmed bool
	confirmForm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Redeem code %q against %s?", code, gatewayURL)).
				Value(&confirmed),
		),
	)
	if err := confirmForm.Run(); err != nil {
		return fmt.Errorf("confirmation cancelled: %w", err)
	}
	if !confirmed {
		fmt.Println("Pairing cancelled.")
		return nil
	}

	token, err := redeemPairingCode(gatewayURL, code)
	if err != nil {
		return err
	}

	fmt.Println("Paired successfully. Bearer token:")
	fmt.Println()
	fmt.Println("  " + token)
	fmt.Println()
	fmt.Println("Use it as: Authorization: Bearer <token>")
	return nil
}

func redeemPairingCode(gatewayURL, code string) (string, error) {
	req, err := http.NewRequest(http.MethodPost, gatewayURL+"/pair", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Pairing-Code", code)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reach gateway at %s: %w", gatewayURL, err)
	}
	defer resp.Body.Close()

	var body struct {
		Error string `json:"error"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode pairing response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if body.Error != "" {
			return "", fmt.Errorf("pairing rejected: %s", body.Error)
		}
		return "", fmt.Errorf("pairing rejected: status %d", resp.StatusCode)
	}
	return body.Token, nil
}
