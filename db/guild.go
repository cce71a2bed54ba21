package db

import (
	"fmt"

	"github.com/callummance/hibiki/guildmodels"
	"github.com/sirupsen/logrus"
	rethink "gopkg.in/gorethink/gorethink.v3"
)

const guildsTable string = "guilds"

//GetOrCreateGuild fetches a guild with a given ID from the database, creating a new one if it does not exist.
func (db *Connection) GetOrCreateGuild(id string) (*guildmodels.DiscordGuild, error) {
	var guildObj guildmodels.DiscordGuild
	res, err := rethink.Table(guildsTable).Get(id).Run(db.session)
	if err != nil {
		logrus.Errorf("Failed to query database for guild %v because: %v.", id, err)
		return nil, fmt.Errorf("failed to query database for guild %v: %w", id, err)
	}
	defer res.Close()

	if res.IsNil() {
		//Create new guild object
		logrus.Infof("Inserting new guild id %v into database.", id)
		guildObj = guildmodels.DefaultGuild(id)
		resp, err := rethink.Table(guildsTable).Insert(guildObj).RunWrite(db.session)
		if err != nil {
			logrus.Errorf("Failed to insert new guild with id %v because: %v.", id, err)
			return nil, fmt.Errorf("failed to insert new guild with id %v: %w", id, err)
		} else if resp.Inserted != 1 {
			logrus.Warnf("Expected to insert 1 new guild but recieved response %v.", resp)
		}
	} else {
		err = res.One(&guildObj)
		if err != nil {
			logrus.Errorf("Failed to read guild %v from database because: %v.", id, err)
			return nil, fmt.Errorf("failed to read guild %v from database: %w", id, err)
		}
	}
	return &guildObj, nil
}

//AllGuilds returns the settings of every guild known to the database
func (db *Connection) AllGuilds() ([]guildmodels.DiscordGuild, error) {
	res, err := rethink.Table(guildsTable).Run(db.session)
	if err != nil {
		logrus.Errorf("Failed to list guilds because: %v.", err)
		return nil, fmt.Errorf("failed to list guilds: %w", err)
	}
	defer res.Close()
	var guilds []guildmodels.DiscordGuild
	if err := res.All(&guilds); err != nil {
		logrus.Errorf("Failed to read guilds because: %v.", err)
		return nil, fmt.Errorf("failed to read guilds: %w", err)
	}
	return guilds, nil
}

//AddAdminRole adds a roleID to the list of AdminRoles for the given guild. It returns the number of updated
//entries as well as any errors
func (db *Connection) AddAdminRole(gid string, roleID string) (int, error) {
	resp, err := checkWrite(rethink.Table(guildsTable).Get(gid).Update(map[string]interface{}{
		"admin_roles": rethink.Row.Field("admin_roles").Default([]string{}).SetInsert(roleID),
	}).RunWrite(db.session))
	if err != nil {
		logrus.Warnf("Encountered error appending admin role to DB: %v", err)
		return 0, err
	}
	return resp.Replaced, nil
}

//SetGuildPrefix stores the command prefix for a guild. An empty prefix clears it.
func (db *Connection) SetGuildPrefix(gid string, prefix string) error {
	if _, err := db.GetOrCreateGuild(gid); err != nil {
		return err
	}
	_, err := checkWrite(rethink.Table(guildsTable).Get(gid).Update(map[string]interface{}{
		"prefix": prefix,
	}).RunWrite(db.session))
	if err != nil {
		logrus.Warnf("Encountered error setting prefix for guild %v: %v", gid, err)
		return fmt.Errorf("failed to set prefix for guild %v: %w", gid, err)
	}
	return nil
}
