package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/noah-isme/lms-grades-api/internal/models"
	"github.com/noah-isme/lms-grades-api/internal/service"
)

type commerceConfigurer interface {
	Configure(ctx context.Context, req service.ConfigureCommerceRequest) (*models.CommerceConfiguration, error)
}

func newConfigureCommerceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure-commerce",
		Short: "enable or disable the commerce configuration",
		Long: "   Enables commerce and checkout on the ecommerce service by default.\n" +
			"   Pass --disable or --disable-checkout-on-ecommerce to switch them off.\n" +
			"   The configuration is attached to the site named by --site-id or --site-domain.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := commerceRequestFromFlags(cmd)
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return runConfigureCommerce(cmd.Context(), a.Commerce, req, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Int64("site-id", 0, "id of the site the configuration applies to")
	cmd.Flags().String("site-domain", "", "domain of the site the configuration applies to")
	cmd.Flags().Bool("disable-checkout-on-ecommerce", false, "disable checkout on the ecommerce service")
	cmd.Flags().Bool("disable", false, "disable commerce configuration")
	return cmd
}

func commerceRequestFromFlags(cmd *cobra.Command) (service.ConfigureCommerceRequest, error) {
	var req service.ConfigureCommerceRequest
	flags := cmd.Flags()
	if flags.Changed("site-id") {
		id, err := flags.GetInt64("site-id")
		if err != nil {
			return req, err
		}
		req.SiteID = &id
	}
	domain, err := flags.GetString("site-domain")
	if err != nil {
		return req, err
	}
	req.SiteDomain = domain
	if req.DisableCheckoutOnEcommerce, err = flags.GetBool("disable-checkout-on-ecommerce"); err != nil {
		return req, err
	}
	if req.Disable, err = flags.GetBool("disable"); err != nil {
		return req, err
	}
	return req, nil
}

func runConfigureCommerce(ctx context.Context, svc commerceConfigurer, req service.ConfigureCommerceRequest, out io.Writer) error {
	cfg, err := svc.Configure(ctx, req)
	if err != nil {
		return err
	}
	site := "none"
	if cfg.Site != nil {
		site = cfg.Site.Domain
	}
	fmt.Fprintf(out, "commerce configuration updated: enabled=%t checkout_on_ecommerce_service=%t site=%s\n",
		cfg.Enabled, cfg.CheckoutOnEcommerceService, site)
	return nil
}
