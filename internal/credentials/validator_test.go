package credentials

import "testing"

func TestValidateKeys_ModeEnvironmentTable(t *testing.T) {
	cases := []struct {
		name      string
		mode      string
		keyEnv    string
		wantError bool
	}{
		{"test mode forbids prod keys", ModeTest, "prod", true},
		{"live mode forbids cert keys", ModeLive, "cert", true},
		{"test mode accepts cert keys", ModeTest, "cert", false},
		{"live mode accepts prod keys", ModeLive, "prod", false},
		// Unknown tags pass so new processor environments don't break
		// existing configurations.
		{"test mode accepts unknown tags", ModeTest, "uat", false},
		{"live mode accepts unknown tags", ModeLive, "uat", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			publicKey := "pkapi_" + tc.keyEnv + "_abc"
			secretKey := "skapi_" + tc.keyEnv + "_def"

			errs := ValidateKeys(tc.mode, publicKey, secretKey)
			if tc.wantError && len(errs) != 2 {
				t.Errorf("expected errors on both keys, got %v", errs)
			}
			if !tc.wantError && len(errs) != 0 {
				t.Errorf("expected no errors, got %v", errs)
			}
		})
	}
}

func TestValidateKeys_ErrorsAttachToTheOffendingField(t *testing.T) {
	// Only the secret key is from the wrong environment; the operator
	// should be pointed at exactly that field.
	errs := ValidateKeys(ModeTest, "pkapi_cert_abc", "skapi_prod_def")
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error, got %v", errs)
	}
	if errs[0].Field != "secret_key" {
		t.Errorf("expected error on secret_key, got %q", errs[0].Field)
	}
}

func TestKeyEnvironment(t *testing.T) {
	if env := KeyEnvironment("pkapi_cert_abc123"); env != "cert" {
		t.Errorf("expected cert, got %q", env)
	}
	if env := KeyEnvironment("no-underscores"); env != "" {
		t.Errorf("expected empty env for unsegmented key, got %q", env)
	}
}
