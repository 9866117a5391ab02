package bitcoin

import (
	"reflect"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

func Test_scriptDecoder_Addresses(t *testing.T) {
	t.Parallel()

	addr, script := testAddress(t)

	tests := []struct {
		name    string
		script  []byte
		want    []string
		wantErr bool
	}{
		{
			name:   "pay to pubkey hash",
			script: script,
			want:   []string{addr.EncodeAddress()},
		},
		{
			name:   "empty script",
			script: nil,
			want:   nil,
		},
		{
			name:   "null data script has no owners",
			script: []byte{txscript.OP_RETURN, 0x02, 0xab, 0xcd},
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &scriptDecoder{params: &chaincfg.RegressionNetParams}
			got, err := d.Addresses(tt.script)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Addresses() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) == 0 {
				got = nil
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Addresses() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_chainParamsForNetwork(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		network string
		want    *chaincfg.Params
		wantErr bool
	}{
		{name: "main aliases", network: "mainnet", want: &chaincfg.MainNetParams},
		{name: "bitcoin alias", network: "bitcoin", want: &chaincfg.MainNetParams},
		{name: "testnet", network: "testnet", want: &chaincfg.TestNet3Params},
		{name: "regtest", network: "regtest", want: &chaincfg.RegressionNetParams},
		{name: "signet", network: "signet", want: &chaincfg.SigNetParams},
		{name: "unsupported", network: "unknown", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := chainParamsForNetwork(tt.network)
			if (err != nil) != tt.wantErr {
				t.Fatalf("chainParamsForNetwork() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Fatalf("chainParamsForNetwork() = %v, want %v", got, tt.want)
			}
		})
	}
}
