// Bootstraps the Scylla keyspace and message tables.
package main

import (
	"log"
	"os"
	"strings"

	"github.com/mahaj/topic-chat/pkg/db"
)

func main() {
	hostsStr := os.Getenv("SCYLLA_HOSTS")
	if hostsStr == "" {
		hostsStr = "localhost:9042"
	}
	hosts := strings.Split(hostsStr, ",")

	sysSession, err := db.NewSession(hosts, "system")
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB system keyspace: %v", err)
	}

	err = sysSession.Query(`CREATE KEYSPACE IF NOT EXISTS chat WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`).Exec()
	if err != nil {
		log.Fatalf("Failed to create keyspace: %v", err)
	}
	sysSession.Close()

	session, err := db.NewSession(hosts, "chat")
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB chat keyspace: %v", err)
	}
	defer session.Close()

	// Ascending clustering order: history reads return oldest-first without
	// re-sorting.
	err = session.Query(`CREATE TABLE IF NOT EXISTS group_messages (
		room text,
		id bigint,
		from_user text,
		message text,
		sent_at timestamp,
		PRIMARY KEY (room, id)
	) WITH CLUSTERING ORDER BY (id ASC)`).Exec()
	if err != nil {
		log.Fatalf("Failed to create group_messages table: %v", err)
	}

	err = session.Query(`CREATE TABLE IF NOT EXISTS private_messages (
		pair text,
		id bigint,
		from_user text,
		to_user text,
		message text,
		sent_at timestamp,
		PRIMARY KEY (pair, id)
	) WITH CLUSTERING ORDER BY (id ASC)`).Exec()
	if err != nil {
		log.Fatalf("Failed to create private_messages table: %v", err)
	}

	log.Println("Tables created successfully")
}
