package authclient_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/blogauth/auth-service/internal/authclient"
)

func ExampleClient_User() {
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer YWxpY2U6MTAwMDpzaWc=" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1,"username":"alice","email":"alice@example.com"}`))
	}))
	defer auth.Close()

	client := authclient.New(auth.URL, 2*time.Second)

	user, err := client.User("YWxpY2U6MTAwMDpzaWc=")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(user.Username)

	_, err = client.User("forged")
	fmt.Println(errors.Is(err, authclient.ErrUnauthorized))
	// Output:
	// alice
	// true
}
