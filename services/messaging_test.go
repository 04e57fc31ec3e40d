package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBitSafiraSenderPostsMessage(t *testing.T) {
	var got bitSafiraMessage
	var token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/disparo/enviar", r.URL.Path)
		token = r.Header.Get("Token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"mensagem":"Mensagem enfileirada"}`))
	}))
	defer srv.Close()

	sender := NewBitSafiraSender(srv.URL, "55")
	res, err := sender.Send(context.Background(), Credentials{Token: "tok", InstanceID: "inst"}, "(11) 98888-7777", "Olá")

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.Status)
	assert.Equal(t, "Mensagem enfileirada", res.Message)
	assert.Equal(t, "tok", token)
	assert.Equal(t, bitSafiraMessage{InstanceID: "inst", WhatsApp: "5511988887777", Text: "Olá", SendImmediate: 1}, got)
}

func TestBitSafiraSenderFallsBackOnNotFound(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/disparo/enviar" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := NewBitSafiraSender(srv.URL, "55").Send(context.Background(), Credentials{Token: "t", InstanceID: "i"}, "5511988887777", "x")

	require.NoError(t, err)
	assert.Equal(t, []string{"/disparo/enviar", "/mensagem/disparar"}, paths)
}

func TestBitSafiraSenderReportsProviderMessageOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"mensagem":"Instância desconectada"}`))
	}))
	defer srv.Close()

	res, err := NewBitSafiraSender(srv.URL, "55").Send(context.Background(), Credentials{Token: "t", InstanceID: "i"}, "11988887777", "x")

	require.EqualError(t, err, "Instância desconectada")
	assert.Equal(t, http.StatusBadRequest, res.Status)
}

func TestBitSafiraSenderRequiresCredentials(t *testing.T) {
	_, err := NewBitSafiraSender("http://127.0.0.1:1", "55").Send(context.Background(), Credentials{}, "11988887777", "x")
	assert.Error(t, err)
}

func TestWhatsAppAddress(t *testing.T) {
	cases := []struct {
		in, code, want string
	}{
		{"+14155238886", "", "whatsapp:+14155238886"},
		{"whatsapp:+14155238886", "55", "whatsapp:+14155238886"},
		{"(11) 98888-7777", "55", "whatsapp:+5511988887777"},
		{"", "55", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, whatsAppAddress(tc.in, tc.code), tc.in)
	}
}

func TestNoopSenderAcceptsEverything(t *testing.T) {
	res, err := NewNoopSender(zap.NewNop()).Send(context.Background(), Credentials{}, "", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
}
