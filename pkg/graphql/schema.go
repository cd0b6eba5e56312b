package graphql

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/graphql-go/graphql"

	"token-payment-api/internal/graph"
)

type GraphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// NewHandler serves the payment schema. POST takes a JSON body; GET takes the
// query string parameter "query".
func NewHandler(resolver *graph.Resolver) (http.Handler, error) {
	schema, err := createSchema(resolver)
	if err != nil {
		return nil, err
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var req GraphQLRequest
		switch r.Method {
		case http.MethodGet:
			req.Query = r.URL.Query().Get("query")
			req.OperationName = r.URL.Query().Get("operationName")
		case http.MethodPost:
			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "Error reading request body", http.StatusBadRequest)
				return
			}
			if err := json.Unmarshal(body, &req); err != nil {
				http.Error(w, "Error parsing request body", http.StatusBadRequest)
				return
			}
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        r.Context(),
		})
		json.NewEncoder(w).Encode(result)
	}), nil
}

func createSchema(resolver *graph.Resolver) (graphql.Schema, error) {
	walletType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Wallet",
		Fields: graphql.Fields{
			"address": &graphql.Field{Type: graphql.String},
			"balance": &graphql.Field{Type: graphql.String},
		},
	})

	notificationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Notification",
		Fields: graphql.Fields{
			"open":    &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"message": &graphql.Field{Type: graphql.String},
			"success": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"txHash":  &graphql.Field{Type: graphql.String},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"address":       &graphql.Field{Type: graphql.String},
			"chainId":       &graphql.Field{Type: graphql.Int},
			"recipient":     &graphql.Field{Type: graphql.String},
			"balance":       &graphql.Field{Type: graphql.String},
			"balanceStatus": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"notification":  &graphql.Field{Type: notificationType},
		},
	})

	paymentType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Payment",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"sessionId": &graphql.Field{Type: graphql.String},
			"from":      &graphql.Field{Type: graphql.String},
			"to":        &graphql.Field{Type: graphql.String},
			"amount":    &graphql.Field{Type: graphql.String},
			"baseUnits": &graphql.Field{Type: graphql.String},
			"txHash":    &graphql.Field{Type: graphql.String},
			"status":    &graphql.Field{Type: graphql.String},
			"error":     &graphql.Field{Type: graphql.String},
			"createdAt": &graphql.Field{Type: graphql.DateTime},
		},
	})

	configType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Config",
		Fields: graphql.Fields{
			"tokenAddress":     &graphql.Field{Type: graphql.String},
			"tokenSymbol":      &graphql.Field{Type: graphql.String},
			"chainId":          &graphql.Field{Type: graphql.Int},
			"decimals":         &graphql.Field{Type: graphql.Int},
			"amounts":          &graphql.Field{Type: graphql.NewList(graphql.String)},
			"defaultRecipient": &graphql.Field{Type: graphql.String},
			"accounts":         &graphql.Field{Type: graphql.NewList(graphql.String)},
		},
	})

	sessionArg := graphql.FieldConfigArgument{
		"session": &graphql.ArgumentConfig{
			Type: graphql.NewNonNull(graphql.String),
		},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"config": &graphql.Field{
				Type: configType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return resolver.PaymentConfig(), nil
				},
			},
			"session": &graphql.Field{
				Type: sessionType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.String),
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return resolver.Session(p.Args["id"].(string))
				},
			},
			"wallet": &graphql.Field{
				Type: walletType,
				Args: graphql.FieldConfigArgument{
					"address": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.String),
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return resolver.Wallet(p.Context, p.Args["address"].(string))
				},
			},
			"payments": &graphql.Field{
				Type: graphql.NewList(paymentType),
				Args: graphql.FieldConfigArgument{
					"address": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.String),
					},
					"limit": &graphql.ArgumentConfig{
						Type:         graphql.Int,
						DefaultValue: 20,
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit, _ := p.Args["limit"].(int)
					return resolver.Payments(p.Context, p.Args["address"].(string), limit)
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"openSession": &graphql.Field{
				Type: sessionType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return resolver.OpenSession()
				},
			},
			"closeSession": &graphql.Field{
				Type: graphql.Boolean,
				Args: sessionArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return resolver.CloseSession(p.Args["session"].(string))
				},
			},
			"changeAccount": &graphql.Field{
				Type: sessionType,
				Args: graphql.FieldConfigArgument{
					"session": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.String),
					},
					"address": &graphql.ArgumentConfig{
						Type: graphql.String,
					},
					"chainId": &graphql.ArgumentConfig{
						Type: graphql.Int,
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					args := graph.ChangeAccountArgs{
						SessionID: p.Args["session"].(string),
					}
					if addr, ok := p.Args["address"].(string); ok {
						args.Address = &addr
					}
					if id, ok := p.Args["chainId"].(int); ok {
						args.ChainID = int64(id)
					}
					return resolver.ChangeAccount(p.Context, args)
				},
			},
			"setRecipient": &graphql.Field{
				Type: sessionType,
				Args: graphql.FieldConfigArgument{
					"session": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.String),
					},
					"address": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.String),
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return resolver.SetRecipient(graph.RecipientArgs{
						SessionID: p.Args["session"].(string),
						Address:   p.Args["address"].(string),
					})
				},
			},
			"pay": &graphql.Field{
				Type: sessionType,
				Args: graphql.FieldConfigArgument{
					"session": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.String),
					},
					"amount": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.String),
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return resolver.Pay(p.Context, graph.PayArgs{
						SessionID: p.Args["session"].(string),
						Amount:    p.Args["amount"].(string),
					})
				},
			},
			"dismiss": &graphql.Field{
				Type: sessionType,
				Args: sessionArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return resolver.Dismiss(p.Args["session"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}
